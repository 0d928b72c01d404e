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

package bundle

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

// ChecksumFileName is the name of the checksum index inside a bundle.
const ChecksumFileName = "checksums.txt"

// GenerateChecksums writes checksums.txt into dir with one
// "<sha256>  <relative path>" line per regular file in dir, sorted by path.
func GenerateChecksums(ctx context.Context, dir string) error {
	files, err := bundleFiles(dir)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		sum, err := fileDigest(filepath.Join(dir, rel))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("failed to checksum %s", rel), err)
		}
		lines = append(lines, fmt.Sprintf("%s  %s", sum, filepath.ToSlash(rel)))
	}

	path := filepath.Join(dir, ChecksumFileName)
	content := strings.Join(lines, "\n") + "\n"
	if err := renameio.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write checksums", err)
	}

	slog.Debug("checksums generated", "file_count", len(lines), "path", path)
	return nil
}

// VerifyChecksums checks every entry of dir's checksums.txt. It returns
// (false, nil) when the bundle carries no checksum file.
func VerifyChecksums(ctx context.Context, dir string) (bool, error) {
	f, err := os.Open(filepath.Join(dir, ChecksumFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrCodeInternal, "failed to open checksums", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return true, fmt.Errorf("context cancelled: %w", err)
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		want, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return true, errors.NewWithContext(errors.ErrCodeBadArchive, "malformed checksum line",
				map[string]any{"line": line})
		}
		rel = filepath.FromSlash(rel)
		if !filepath.IsLocal(rel) {
			return true, errors.NewWithContext(errors.ErrCodeBadArchive, "checksum entry escapes bundle",
				map[string]any{"file": rel})
		}
		got, err := fileDigest(filepath.Join(dir, rel))
		if err != nil {
			return true, errors.WrapWithContext(errors.ErrCodeBadArchive, "checksummed file unreadable", err,
				map[string]any{"file": rel})
		}
		if got != want {
			return true, errors.NewWithContext(errors.ErrCodeBadArchive, "checksum mismatch",
				map[string]any{"file": rel, "expected": want, "actual": got})
		}
	}
	if err := scanner.Err(); err != nil {
		return true, errors.Wrap(errors.ErrCodeBadArchive, "failed to read checksums", err)
	}
	return true, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// bundleFiles returns the relative paths of regular files under dir,
// excluding the checksum file itself.
func bundleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == ChecksumFileName {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to walk bundle directory", err)
	}
	sort.Strings(files)
	return files, nil
}
