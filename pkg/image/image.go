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

package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/distribution/reference"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/errors"
)

// Runtime is a local container runtime able to move images between
// registries and archive files. Every call blocks until the runtime reports
// completion; a non-nil error carries the runtime's own error text.
type Runtime interface {
	Login(ctx context.Context, registry, user, pass string) error
	Pull(ctx context.Context, name string) error
	Save(ctx context.Context, name, path string) error
	Load(ctx context.Context, path string) error
	Tag(ctx context.Context, src, dst string) error
	Push(ctx context.Context, name string) error
}

// Relocation stages, used in error context and logs.
const (
	StageLogin = "login"
	StagePull  = "pull"
	StageSave  = "save"
	StageLoad  = "load"
	StageTag   = "tag"
	StagePush  = "push"
)

var archiveReplacer = strings.NewReplacer("/", "_", ":", "_")

// ArchiveName returns the file name an image is saved under: every "/" and
// ":" replaced with "_", suffixed ".tar".
func ArchiveName(name string) string {
	return archiveReplacer.Replace(name) + bundle.ArchiveExt
}

// DestinationName maps a source image name onto the destination registry.
//
//	name            -> <registry>/library/name
//	ns/name         -> <registry>/ns/name
//	reg/ns/name     -> <registry>/ns/name
//
// Names with more segments, or results that are not valid references, fail
// with INVALID_IMAGE_NAME.
func DestinationName(registry, source string) (string, error) {
	registry = strings.TrimSuffix(registry, "/")
	if registry == "" {
		return "", errors.New(errors.ErrCodeInvalidRequest, "destination registry is required")
	}

	parts := strings.Split(source, "/")
	var dst string
	switch len(parts) {
	case 1:
		dst = fmt.Sprintf("%s/library/%s", registry, parts[0])
	case 2:
		dst = fmt.Sprintf("%s/%s/%s", registry, parts[0], parts[1])
	case 3:
		dst = fmt.Sprintf("%s/%s/%s", registry, parts[1], parts[2])
	default:
		return "", errors.NewWithContext(errors.ErrCodeInvalidImageName,
			fmt.Sprintf("invalid image name: %s", source), map[string]any{"image": source})
	}

	for _, p := range parts {
		if p == "" {
			return "", errors.NewWithContext(errors.ErrCodeInvalidImageName,
				fmt.Sprintf("invalid image name: %s", source), map[string]any{"image": source})
		}
	}
	if _, err := reference.ParseNormalizedNamed(dst); err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeInvalidImageName,
			fmt.Sprintf("invalid image name: %s", source), err, map[string]any{"image": source, "destination": dst})
	}
	return dst, nil
}
