// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bundler

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/NVIDIA/appbundle/pkg/defaults"
	"github.com/NVIDIA/appbundle/pkg/errors"
)

// Package snapshots the bundle directory of (namespace, appname) into
// <root>/<namespace>/<appname>.zip and returns its path. Entries are stored
// relative to the bundle directory. The archive is replaced atomically, so a
// concurrent download never sees a partial file.
func (b *Bundler) Package(ctx context.Context, namespace, appname string) (path string, err error) {
	start := time.Now()
	defer func() { observe(opPackage, time.Since(start).Seconds(), err) }()

	dir, err := b.store.Lookup(namespace, appname)
	if err != nil {
		return "", err
	}

	unlock, err := b.lock(ctx, namespace, appname)
	if err != nil {
		return "", err
	}
	defer unlock()

	zipPath := b.store.ZipPath(namespace, appname)
	pf, err := renameio.TempFile(filepath.Dir(zipPath), zipPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to create bundle archive", err)
	}
	defer pf.Cleanup()

	if err := writeZip(ctx, pf, dir); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to package bundle", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to finalize bundle archive", err)
	}

	slog.Info("bundle packaged", "namespace", namespace, "appname", appname, "path", zipPath)
	return zipPath, nil
}

// writeZip writes every file under dir into a zip stream on w.
func writeZip(ctx context.Context, w io.Writer, dir string) error {
	zw := zip.NewWriter(w)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk error: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path == dir {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to create file header: %w", err)
		}
		header.Name = filepath.ToSlash(relPath)

		if info.IsDir() {
			header.Name += "/"
			_, headerErr := zw.CreateHeader(header)
			return headerErr
		}

		header.Method = zip.Deflate

		writer, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create zip entry: %w", err)
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		if _, err := io.Copy(writer, file); err != nil {
			return fmt.Errorf("failed to copy file content: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// StreamChunks copies r to w in fixed-size chunks of
// defaults.DownloadChunkSize bytes, flushing after each chunk when w
// supports it.
func StreamChunks(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, defaults.DownloadChunkSize)
	flusher, _ := w.(interface{ Flush() })

	var total int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			written, err := w.Write(buf[:n])
			total += int64(written)
			if err != nil {
				return total, err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}
