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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

// File names inside a bundle directory.
const (
	ManifestFileName = "app.manifest"
	MetadataFileName = "metadata.json"
	ArchiveExt       = ".tar"
)

// Metadata is the persisted index of a bundle. It lets a bundle be rebuilt
// from disk without re-parsing the manifest.
type Metadata struct {
	Name      string        `json:"name"`
	Namespace string        `json:"namespace"`
	Images    []ImageRef    `json:"images"`
	NodePorts []PortMapping `json:"nodeports"`
}

// ImageRef links a registry-qualified image name to its saved archive.
type ImageRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PortMapping is a NodePort service port and its external port. Both values
// are kept in their stored string form; ExternalPort is empty until a caller
// supplies one at deploy time.
type PortMapping struct {
	InternalPort string `json:"internal_port"`
	ExternalPort string `json:"external_port"`
}

// RelativeImages returns a copy of refs with each archive path reduced to its
// name inside the bundle directory, so stored metadata carries no host paths.
func RelativeImages(refs []ImageRef) []ImageRef {
	out := make([]ImageRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, ImageRef{Name: r.Name, Path: filepath.Base(r.Path)})
	}
	return out
}

// ResolveImages returns a copy of refs whose paths point at dir. Only the base
// name of the stored path is kept so a bundle that has been moved still
// resolves against its current location.
func ResolveImages(dir string, refs []ImageRef) ([]ImageRef, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to resolve bundle path", err)
	}
	out := make([]ImageRef, 0, len(refs))
	for _, r := range refs {
		base := filepath.Base(filepath.ToSlash(r.Path))
		if r.Path == "" || base == "." || base == "/" {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
				"image archive path missing in metadata", map[string]any{"image": r.Name})
		}
		out = append(out, ImageRef{Name: r.Name, Path: filepath.Join(abs, base)})
	}
	return out, nil
}

// ReadMetadata loads metadata.json from dir. A missing file yields
// os.ErrNotExist so callers can fall back to empty metadata.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return nil, err
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to decode bundle metadata", err)
	}
	return &md, nil
}

// WriteMetadata atomically replaces metadata.json in dir.
func WriteMetadata(dir string, md *Metadata) error {
	if md == nil {
		return fmt.Errorf("metadata is nil")
	}
	// keep empty lists as [] rather than null
	out := *md
	if out.Images == nil {
		out.Images = []ImageRef{}
	}
	if out.NodePorts == nil {
		out.NodePorts = []PortMapping{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode bundle metadata", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write bundle metadata", err)
	}
	return nil
}

// WriteManifest atomically writes the manifest text verbatim into dir.
func WriteManifest(dir, text string) error {
	if err := renameio.WriteFile(filepath.Join(dir, ManifestFileName), []byte(text), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write manifest", err)
	}
	return nil
}

// ReadManifest returns the stored manifest text of the bundle in dir.
func ReadManifest(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.ErrCodeNotFound, "bundle manifest not found", err)
		}
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to read manifest", err)
	}
	return string(data), nil
}
