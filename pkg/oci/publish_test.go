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
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/registry"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

const testTimestamp = "2025-01-01T00:00:00Z"

func writeBundleDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "myapp")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.manifest"), []byte("kind: Service\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(`{"name":"myapp"}`), 0o600))
	return dir
}

func readManifest(t *testing.T, ctx context.Context, target oras.ReadOnlyTarget, tag string) ociv1.Manifest {
	t.Helper()
	_, b, err := oras.FetchBytes(ctx, target, tag, oras.DefaultFetchBytesOptions)
	require.NoError(t, err)
	var m ociv1.Manifest
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestPackageValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Package(ctx, PackageOptions{SourceDir: writeBundleDir(t), OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, "tag is required for OCI packaging", err.Error())

	_, err = Package(ctx, PackageOptions{SourceDir: filepath.Join(t.TempDir(), "missing"), OutputDir: t.TempDir(), Tag: "v1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))
	_, err = Package(ctx, PackageOptions{SourceDir: f, OutputDir: t.TempDir(), Tag: "v1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestPackageCreatesLayout(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()

	res, err := Package(ctx, PackageOptions{
		SourceDir:             writeBundleDir(t),
		OutputDir:             out,
		Tag:                   "v1",
		Annotations:           map[string]string{"io.nvidia.appbundle.name": "myapp"},
		ReproducibleTimestamp: testTimestamp,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Digest, "sha256:"))
	assert.FileExists(t, filepath.Join(out, "index.json"))
	assert.FileExists(t, filepath.Join(out, "oci-layout"))

	layout, err := oci.New(out)
	require.NoError(t, err)
	m := readManifest(t, ctx, layout, "v1")

	assert.Equal(t, ArtifactType, m.ArtifactType)
	assert.Equal(t, "myapp", m.Annotations["io.nvidia.appbundle.name"])
	assert.Equal(t, testTimestamp, m.Annotations[ociv1.AnnotationCreated])
	require.Len(t, m.Layers, 1)
	assert.Equal(t, ociv1.MediaTypeImageLayerGzip, m.Layers[0].MediaType)
	assert.Equal(t, "myapp", m.Layers[0].Annotations[ociv1.AnnotationTitle])
}

func TestPackageReproducible(t *testing.T) {
	ctx := context.Background()
	src := writeBundleDir(t)

	digests := make([]string, 2)
	for i := range digests {
		res, err := Package(ctx, PackageOptions{
			SourceDir:             src,
			OutputDir:             t.TempDir(),
			Tag:                   "v1",
			ReproducibleTimestamp: testTimestamp,
		})
		require.NoError(t, err)
		digests[i] = res.Digest
	}
	assert.Equal(t, digests[0], digests[1])
}

func TestPushFromStoreValidation(t *testing.T) {
	ctx := context.Background()

	_, err := PushFromStore(ctx, t.TempDir(), PushOptions{})
	require.Error(t, err)

	_, err = PushFromStore(ctx, t.TempDir(), PushOptions{Reference: &Reference{Registry: "localhost:5000", Repository: "test/repo"}})
	require.Error(t, err)
	assert.Equal(t, "tag is required to push OCI image", err.Error())

	_, err = PushFromStore(ctx, t.TempDir(), PushOptions{Reference: &Reference{Registry: "invalid registry", Repository: "test/repo", Tag: "v1"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestPublish(t *testing.T) {
	t.Setenv("DOCKER_CONFIG", t.TempDir())
	ctx := context.Background()

	srv := httptest.NewServer(registry.New(registry.Logger(log.New(io.Discard, "", 0))))
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")

	ref, err := ParseReference("oci://" + host + "/apps/myapp")
	require.NoError(t, err)

	res, err := Publish(ctx, PublishOptions{
		SourceDir:   writeBundleDir(t),
		Reference:   ref,
		Annotations: map[string]string{"io.nvidia.appbundle.namespace": "default"},
		PlainHTTP:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, host+"/apps/myapp:"+DefaultTag, res.Reference)

	repo, err := remote.NewRepository(host + "/apps/myapp")
	require.NoError(t, err)
	repo.PlainHTTP = true

	desc, err := repo.Resolve(ctx, DefaultTag)
	require.NoError(t, err)
	assert.Equal(t, res.Digest, desc.Digest.String())

	m := readManifest(t, ctx, repo, DefaultTag)
	assert.Equal(t, ArtifactType, m.ArtifactType)
	assert.Equal(t, "default", m.Annotations["io.nvidia.appbundle.namespace"])
}

func TestPublishUnreachableRegistry(t *testing.T) {
	t.Setenv("DOCKER_CONFIG", t.TempDir())

	srv := httptest.NewServer(nil)
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	_, err := Publish(context.Background(), PublishOptions{
		SourceDir: writeBundleDir(t),
		Reference: &Reference{Registry: host, Repository: "apps/myapp", Tag: "v1"},
		PlainHTTP: true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalCall))
}
