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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantReg  string
		wantRepo string
		wantTag  string
		wantErr  bool
	}{
		{name: "with tag", input: "oci://ghcr.io/nvidia/myapp:v1.0.0", wantReg: "ghcr.io", wantRepo: "nvidia/myapp", wantTag: "v1.0.0"},
		{name: "without tag", input: "oci://ghcr.io/nvidia/myapp", wantReg: "ghcr.io", wantRepo: "nvidia/myapp"},
		{name: "scheme optional", input: "localhost:5000/apps/myapp:dev", wantReg: "localhost:5000", wantRepo: "apps/myapp", wantTag: "dev"},
		{name: "localhost without port", input: "oci://localhost/apps/myapp", wantReg: "localhost", wantRepo: "apps/myapp"},
		{name: "empty", input: "oci://", wantErr: true},
		{name: "no host", input: "oci://myapp:v1", wantErr: true},
		{name: "docker hub short name", input: "oci://library/myapp", wantErr: true},
		{name: "uppercase repository", input: "oci://ghcr.io/NVIDIA/MyApp", wantErr: true},
		{name: "digest", input: "oci://ghcr.io/nvidia/myapp@sha256:" + sha, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReg, got.Registry)
			assert.Equal(t, tt.wantRepo, got.Repository)
			assert.Equal(t, tt.wantTag, got.Tag)
		})
	}
}

const sha = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestReferenceStrings(t *testing.T) {
	r := &Reference{Registry: "ghcr.io", Repository: "nvidia/myapp"}
	assert.Equal(t, "oci://ghcr.io/nvidia/myapp", r.String())
	assert.Equal(t, "ghcr.io/nvidia/myapp", r.ImageReference())

	tagged := r.WithTag("v2")
	assert.Equal(t, "oci://ghcr.io/nvidia/myapp:v2", tagged.String())
	assert.Equal(t, "ghcr.io/nvidia/myapp:v2", tagged.ImageReference())
	assert.Empty(t, r.Tag, "WithTag must not modify the receiver")
}

func TestStripProtocol(t *testing.T) {
	tests := map[string]string{
		"https://ghcr.io":       "ghcr.io",
		"http://localhost:5000": "localhost:5000",
		"registry.example.com":  "registry.example.com",
		"https://ghcr.io/nvidia": "ghcr.io/nvidia",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripProtocol(in), in)
	}
}

func TestValidateRegistryReference(t *testing.T) {
	tests := []struct {
		name       string
		registry   string
		repository string
		wantErr    bool
	}{
		{name: "valid ghcr.io", registry: "ghcr.io", repository: "nvidia/myapp"},
		{name: "valid localhost with port", registry: "localhost:5000", repository: "test/repo"},
		{name: "valid with https prefix", registry: "https://ghcr.io", repository: "nvidia/myapp"},
		{name: "invalid registry with spaces", registry: "invalid registry", repository: "test/repo", wantErr: true},
		{name: "invalid repository with uppercase", registry: "ghcr.io", repository: "NVIDIA/MyApp", wantErr: true},
		{name: "invalid repository with special chars", registry: "ghcr.io", repository: "test/repo@latest", wantErr: true},
		{name: "valid complex repository", registry: "registry.example.com:5000", repository: "org/team/project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistryReference(tt.registry, tt.repository)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRegistryReference() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
