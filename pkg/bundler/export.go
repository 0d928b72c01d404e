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
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/manifest"
)

// ExportRequest describes an application to capture into a bundle.
type ExportRequest struct {
	// Manifest is the multi-document manifest text, stored verbatim.
	Manifest string
	// Images are the registry-qualified names of the images to save.
	Images []string
	// AppName and Namespace identify the bundle.
	AppName   string
	Namespace string
}

// Validate checks that every field is present. Each missing field is
// reported with its own message.
func (r *ExportRequest) Validate() error {
	if strings.TrimSpace(r.Manifest) == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "manifest is required")
	}
	if len(r.Images) == 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "images are required")
	}
	for i, name := range r.Images {
		if strings.TrimSpace(name) == "" {
			return errors.NewWithContext(errors.ErrCodeInvalidRequest, "image name is empty",
				map[string]any{"index": i})
		}
	}
	if r.AppName == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "appname is required")
	}
	if r.Namespace == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "namespace is required")
	}
	return bundle.ValidateID(r.Namespace, r.AppName)
}

// ExportResult summarizes a completed export.
type ExportResult struct {
	// Path is the bundle directory.
	Path string `json:"path"`
	// Metadata is the index written to metadata.json.
	Metadata *bundle.Metadata `json:"metadata"`
	// DownloadURL retrieves the packaged bundle.
	DownloadURL string `json:"url"`
	// Files and Size describe the bundle directory contents.
	Files    int           `json:"files"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration"`
}

// Export captures an application into the bundle directory for
// (namespace, appname): the directory is recreated, the manifest stored
// verbatim, NodePorts discovered, images saved, then metadata and checksums
// written. The manifest is parsed before anything on disk changes so an
// unparseable manifest leaves an existing bundle intact.
func (b *Bundler) Export(ctx context.Context, req ExportRequest) (res *ExportResult, err error) {
	start := time.Now()
	defer func() { observe(opExport, time.Since(start).Seconds(), err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := b.requireRelocator(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(req.Images))
	for _, n := range req.Images {
		names = append(names, strings.TrimSpace(n))
	}

	ports, err := manifest.Discover(req.Manifest)
	if err != nil {
		return nil, err
	}

	unlock, err := b.lock(ctx, req.Namespace, req.AppName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := slog.With("namespace", req.Namespace, "appname", req.AppName)
	log.Info("exporting application", "images", len(names), "nodeports", len(ports))

	dir, err := b.store.Recreate(req.Namespace, req.AppName)
	if err != nil {
		return nil, err
	}

	if err := bundle.WriteManifest(dir, req.Manifest); err != nil {
		return nil, err
	}

	refs, err := b.relocator.Export(ctx, names, dir)
	if err != nil {
		log.Error("image export failed", "error", err)
		return nil, err
	}

	md := &bundle.Metadata{
		Name:      req.AppName,
		Namespace: req.Namespace,
		Images:    bundle.RelativeImages(refs),
		NodePorts: ports,
	}
	if err := bundle.WriteMetadata(dir, md); err != nil {
		return nil, err
	}

	if err := bundle.GenerateChecksums(ctx, dir); err != nil {
		return nil, err
	}

	files, size, err := dirStats(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to inspect bundle directory", err)
	}
	bundleBytes.Observe(float64(size))

	res = &ExportResult{
		Path:        dir,
		Metadata:    md,
		DownloadURL: b.downloadURL(req.Namespace, req.AppName),
		Files:       files,
		Size:        size,
		Duration:    time.Since(start),
	}

	log.Info("application exported", "path", dir, "files", files, "size", size, "duration", res.Duration)
	return res, nil
}

func (b *Bundler) downloadURL(namespace, appname string) string {
	q := url.Values{}
	q.Set("appname", appname)
	q.Set("namespace", namespace)
	return fmt.Sprintf("%s/api/downloadApp?%s", b.Config.PublicURL(), q.Encode())
}

func dirStats(dir string) (int, int64, error) {
	var files int
	var size int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size, err
}
