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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

// URIScheme is the URI scheme for OCI registry targets (e.g., "oci://ghcr.io/org/repo:tag").
const URIScheme = "oci://"

// DefaultTag is applied when a target carries no tag.
const DefaultTag = "latest"

// Reference is a parsed OCI registry target.
type Reference struct {
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g., "nvidia/bundles/myapp").
	Repository string
	// Tag is the artifact tag. Empty means no tag was given.
	Tag string
}

// ParseReference parses a publish target. The oci:// prefix is optional.
// Registry hosts are never normalized to Docker Hub: a target without an
// explicit host is rejected.
func ParseReference(target string) (*Reference, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(target), URIScheme)
	if raw == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required")
	}

	first, _, found := strings.Cut(raw, "/")
	if !found || !looksLikeHost(first) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"OCI reference must include a registry host", map[string]any{"reference": target})
	}

	ref, err := reference.ParseNormalizedNamed(raw)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest, "invalid OCI reference", err,
			map[string]any{"reference": target})
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"OCI reference must not carry a digest", map[string]any{"reference": target})
	}

	r := &Reference{
		Registry:   reference.Domain(ref),
		Repository: reference.Path(ref),
	}
	if tagged, ok := ref.(reference.Tagged); ok {
		r.Tag = tagged.Tag()
	}
	return r, nil
}

func looksLikeHost(s string) bool {
	return strings.ContainsAny(s, ".:") || s == "localhost"
}

// String returns the reference in oci:// form.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}

// ImageReference returns the reference without the oci:// scheme.
func (r *Reference) ImageReference() string {
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with the specified tag.
func (r *Reference) WithTag(tag string) *Reference {
	return &Reference{
		Registry:   r.Registry,
		Repository: r.Repository,
		Tag:        tag,
	}
}

// ValidateRegistryReference checks that registry and repository form a valid
// reference. An http(s):// prefix on the registry is ignored.
func ValidateRegistryReference(registry, repository string) error {
	ref := fmt.Sprintf("%s/%s", stripProtocol(registry), repository)
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest, "invalid registry reference", err,
			map[string]any{"reference": ref})
	}
	return nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}
