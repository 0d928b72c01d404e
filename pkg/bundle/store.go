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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

const (
	stagingDirName = ".staging"
	zipExt         = ".zip"
)

// Store is the filesystem layout of bundles keyed by namespace and appname:
// <root>/<namespace>/<appname>/. The directory and its contents are the
// bundle; there is no separate index.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root. The root is made absolute so paths
// recorded in metadata stay valid regardless of the working directory.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "bundle store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to resolve bundle store root", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// ValidateID checks that namespace and appname are usable as a bundle identity.
// Both must be DNS-1123 labels, which also keeps them from escaping the root.
func ValidateID(namespace, appname string) error {
	if namespace == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "namespace is required")
	}
	if appname == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "appname is required")
	}
	if msgs := validation.IsDNS1123Label(namespace); len(msgs) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid namespace %q: %s", namespace, strings.Join(msgs, "; ")),
			map[string]any{"namespace": namespace})
	}
	if msgs := validation.IsDNS1123Label(appname); len(msgs) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid appname %q: %s", appname, strings.Join(msgs, "; ")),
			map[string]any{"appname": appname})
	}
	return nil
}

// Dir returns the bundle directory for (namespace, appname).
func (s *Store) Dir(namespace, appname string) string {
	return filepath.Join(s.root, namespace, appname)
}

// Locate maps a bundle directory inside the store back to its
// (namespace, appname). Paths outside the root, or not exactly two levels
// below it, are rejected.
func (s *Store) Locate(path string) (dir, namespace, appname string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", "", errors.Wrap(errors.ErrCodeInvalidRequest, "failed to resolve bundle path", err)
	}
	outside := errors.NewWithContext(errors.ErrCodeInvalidRequest,
		"path is not a bundle directory in the store",
		map[string]any{"path": path, "root": s.root})

	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", "", "", outside
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || ValidateID(parts[0], parts[1]) != nil {
		return "", "", "", outside
	}
	return abs, parts[0], parts[1], nil
}

// ZipPath returns the location of the packaged archive for (namespace, appname).
func (s *Store) ZipPath(namespace, appname string) string {
	return filepath.Join(s.root, namespace, appname+zipExt)
}

// Recreate removes any existing bundle directory for (namespace, appname)
// and creates it empty.
func (s *Store) Recreate(namespace, appname string) (string, error) {
	if err := ValidateID(namespace, appname); err != nil {
		return "", err
	}
	dir := s.Dir(namespace, appname)
	if err := os.RemoveAll(dir); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to clear bundle directory", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to create bundle directory", err)
	}
	return dir, nil
}

// Ensure creates the bundle directory for (namespace, appname) if absent.
func (s *Store) Ensure(namespace, appname string) (string, error) {
	if err := ValidateID(namespace, appname); err != nil {
		return "", err
	}
	dir := s.Dir(namespace, appname)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to create bundle directory", err)
	}
	return dir, nil
}

// Lookup returns the directory of an existing bundle.
func (s *Store) Lookup(namespace, appname string) (string, error) {
	if err := ValidateID(namespace, appname); err != nil {
		return "", err
	}
	dir := s.Dir(namespace, appname)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.NewWithContext(errors.ErrCodeNotFound, "bundle not found",
			map[string]any{"namespace": namespace, "appname": appname})
	}
	return dir, nil
}

// Delete removes the bundle directory and its packaged archive.
func (s *Store) Delete(namespace, appname string) error {
	dir, err := s.Lookup(namespace, appname)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to delete bundle", err)
	}
	if err := os.Remove(s.ZipPath(namespace, appname)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, "failed to delete bundle archive", err)
	}
	return nil
}

// List returns the metadata of every bundle in the store, sorted by
// namespace then name. Directories without readable metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	namespaces, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read bundle store", err)
	}

	result := make([]Metadata, 0)
	for _, ns := range namespaces {
		if !ns.IsDir() || ns.Name() == stagingDirName {
			continue
		}
		apps, err := os.ReadDir(filepath.Join(s.root, ns.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read namespace directory", err)
		}
		for _, app := range apps {
			if !app.IsDir() {
				continue
			}
			md, err := ReadMetadata(filepath.Join(s.root, ns.Name(), app.Name()))
			if err != nil {
				continue
			}
			result = append(result, *md)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Namespace != result[j].Namespace {
			return result[i].Namespace < result[j].Namespace
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// NewStagingDir creates a uniquely named staging directory under the store
// root for a single import operation.
func (s *Store) NewStagingDir() (string, error) {
	dir := filepath.Join(s.root, stagingDirName, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to create staging directory", err)
	}
	return dir, nil
}

// MoveInto moves every entry of src into dst, replacing existing entries of
// the same name, then removes src.
func MoveInto(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to read staging directory", err)
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if err := os.RemoveAll(to); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to replace bundle entry", err)
		}
		if err := os.Rename(from, to); err != nil {
			return errors.WrapWithContext(errors.ErrCodeInternal, "failed to move staged entry", err,
				map[string]any{"entry": e.Name()})
		}
	}
	if err := os.Remove(src); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to remove staging directory", err)
	}
	return nil
}
