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
	"log/slog"
	"strings"
	"time"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/oci"
)

// Manifest annotations recorded on a published bundle.
const (
	AnnotationName      = "io.nvidia.appbundle.name"
	AnnotationNamespace = "io.nvidia.appbundle.namespace"
	AnnotationImages    = "io.nvidia.appbundle.images"
)

// PublishRequest names a stored bundle and the OCI target to push it to.
type PublishRequest struct {
	Namespace string
	AppName   string
	// Target is an oci:// reference. A missing tag publishes as "latest".
	Target string
	// ReproducibleTimestamp fixes the created annotation (RFC 3339).
	ReproducibleTimestamp string
}

// Publish pushes the bundle directory of (namespace, appname) to an OCI
// registry as a single artifact. Registry transport settings follow the
// Bundler configuration.
func (b *Bundler) Publish(ctx context.Context, req PublishRequest) (res *oci.PushResult, err error) {
	start := time.Now()
	defer func() { observe(opPublish, time.Since(start).Seconds(), err) }()

	ref, err := oci.ParseReference(req.Target)
	if err != nil {
		return nil, err
	}

	dir, err := b.store.Lookup(req.Namespace, req.AppName)
	if err != nil {
		return nil, err
	}

	unlock, err := b.lock(ctx, req.Namespace, req.AppName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	md, err := bundle.ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(md.Images))
	for _, img := range md.Images {
		names = append(names, img.Name)
	}

	res, err = oci.Publish(ctx, oci.PublishOptions{
		SourceDir:   dir,
		Reference:   ref,
		Annotations: map[string]string{
			AnnotationName:         md.Name,
			AnnotationNamespace:    md.Namespace,
			AnnotationImages:       strings.Join(names, ","),
			ociv1.AnnotationTitle:  md.Name,
			ociv1.AnnotationVendor: "NVIDIA",
		},
		ReproducibleTimestamp: req.ReproducibleTimestamp,
		PlainHTTP:             b.Config.PlainHTTP(),
		InsecureTLS:           b.Config.InsecureRegistry(),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("bundle published", "namespace", req.Namespace, "appname", req.AppName,
		"reference", res.Reference, "digest", res.Digest)
	return res, nil
}
