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
	"strings"
	"time"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/manifest"
)

// ImportResult reports an import and the deploy that follows it.
type ImportResult struct {
	// Metadata is the index read from the uploaded bundle.
	Metadata *bundle.Metadata `json:"metadata"`
	// Path is the bundle directory the upload was moved into.
	Path string `json:"path"`
	// Deploy is set when the follow-up deploy succeeded.
	Deploy *DeployResult `json:"deploy,omitempty"`
	// DeployError is set when the follow-up deploy failed. The import
	// itself still succeeded.
	DeployError error `json:"-"`
}

// Import unpacks an uploaded bundle archive into the store and deploys it.
//
// The upload is written into a staging directory unique to this call and
// decoded as a zip; a corrupt upload fails with BAD_ARCHIVE and only that
// upload is removed. The extracted bundle must carry metadata naming its
// namespace and appname; it is checked against checksums.txt when present,
// then moved into <root>/<namespace>/<appname>/, replacing files of the
// same name. The deploy runs with ports as external port mapping; its
// outcome is reported in the result rather than as the returned error.
func (b *Bundler) Import(ctx context.Context, archiveName string, r io.Reader, ports manifest.ExternalPorts) (res *ImportResult, err error) {
	start := time.Now()
	defer func() { observe(opImport, time.Since(start).Seconds(), err) }()

	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(archiveName, "\\", "/")))
	if archiveName == "" || base == "/" || base == "." {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "archive file name is required")
	}

	staging, err := b.store.NewStagingDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	archivePath := filepath.Join(staging, base)
	if err := saveUpload(archivePath, r); err != nil {
		return nil, err
	}
	slog.Debug("upload staged", "path", archivePath)

	extractDir := filepath.Join(staging, "bundle")
	if err := extractZip(ctx, archivePath, extractDir); err != nil {
		_ = os.Remove(archivePath)
		return nil, err
	}
	if err := os.Remove(archivePath); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to remove uploaded archive", err)
	}

	root, err := bundleRoot(extractDir)
	if err != nil {
		return nil, err
	}

	md, err := bundle.ReadMetadata(root)
	switch {
	case os.IsNotExist(err):
		md = &bundle.Metadata{}
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeBadArchive, "bundle metadata is unreadable", err)
	}
	if md.Namespace == "" || md.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "metadata namespace/name missing")
	}
	if err := bundle.ValidateID(md.Namespace, md.Name); err != nil {
		return nil, err
	}

	if verified, err := bundle.VerifyChecksums(ctx, root); err != nil {
		return nil, err
	} else if !verified {
		slog.Debug("bundle carries no checksums", "namespace", md.Namespace, "appname", md.Name)
	}

	unlock, err := b.lock(ctx, md.Namespace, md.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dir, err := b.store.Ensure(md.Namespace, md.Name)
	if err != nil {
		return nil, err
	}
	if err := bundle.MoveInto(root, dir); err != nil {
		return nil, err
	}

	slog.Info("bundle imported", "namespace", md.Namespace, "appname", md.Name, "path", dir, "images", len(md.Images))

	res = &ImportResult{Metadata: md, Path: dir}
	res.Deploy, res.DeployError = b.deployLocked(ctx, dir, md, DeployRequest{Path: dir, Ports: ports})
	if res.DeployError != nil {
		slog.Error("deploy after import failed",
			"namespace", md.Namespace,
			"appname", md.Name,
			"error", res.DeployError)
	}
	return res, nil
}

func saveUpload(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to stage upload", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInvalidRequest, "failed to receive upload", err)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to stage upload", err)
	}
	return nil
}

// extractZip unpacks the archive into dst. Entries that would land outside
// dst are rejected.
func extractZip(ctx context.Context, archive, dst string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBadArchive, "failed to extract zip file", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create extraction directory", err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return errors.NewWithContext(errors.ErrCodeBadArchive, "archive entry escapes bundle",
				map[string]any{"entry": f.Name})
		}
		target := filepath.Join(dst, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, "failed to create directory", err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			return errors.NewWithContext(errors.ErrCodeBadArchive, "archive entry is not a regular file",
				map[string]any{"entry": f.Name})
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create directory", err)
	}

	rc, err := f.Open()
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeBadArchive, "failed to open archive entry", err,
			map[string]any{"entry": f.Name})
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create extracted file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return errors.WrapWithContext(errors.ErrCodeBadArchive, "failed to extract archive entry", err,
			map[string]any{"entry": f.Name})
	}
	return nil
}

// bundleRoot returns dir, or its single subdirectory when the archive
// wrapped the bundle in one top-level folder.
func bundleRoot(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, bundle.MetadataFileName)); err == nil {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to read extracted bundle", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		nested := filepath.Join(dir, entries[0].Name())
		if _, err := os.Stat(filepath.Join(nested, bundle.MetadataFileName)); err == nil {
			return nested, nil
		}
	}
	return dir, nil
}
