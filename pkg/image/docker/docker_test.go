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

package docker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	loginErr   error
	pullBody   string
	pushBody   string
	saveBody   string
	loaded     string
	tagged     [2]string
	pullAuth   string
	pushAuth   string
	pulledRef  string
	pushedRef  string
	closeCalls int
}

func (f *fakeClient) RegistryLogin(_ context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error) {
	if f.loginErr != nil {
		return registry.AuthenticateOKBody{}, f.loginErr
	}
	return registry.AuthenticateOKBody{Status: "Login Succeeded"}, nil
}

func (f *fakeClient) ImagePull(_ context.Context, ref string, options image.PullOptions) (io.ReadCloser, error) {
	f.pulledRef = ref
	f.pullAuth = options.RegistryAuth
	return io.NopCloser(strings.NewReader(f.pullBody)), nil
}

func (f *fakeClient) ImagePush(_ context.Context, ref string, options image.PushOptions) (io.ReadCloser, error) {
	f.pushedRef = ref
	f.pushAuth = options.RegistryAuth
	return io.NopCloser(strings.NewReader(f.pushBody)), nil
}

func (f *fakeClient) ImageSave(_ context.Context, _ []string, _ ...client.ImageSaveOption) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.saveBody)), nil
}

func (f *fakeClient) ImageLoad(_ context.Context, input io.Reader, _ ...client.ImageLoadOption) (image.LoadResponse, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return image.LoadResponse{}, err
	}
	f.loaded = string(data)
	return image.LoadResponse{
		Body: io.NopCloser(strings.NewReader(`{"stream":"Loaded image: myapp:latest\n"}`)),
		JSON: true,
	}, nil
}

func (f *fakeClient) ImageTag(_ context.Context, source, target string) error {
	f.tagged = [2]string{source, target}
	return nil
}

func (f *fakeClient) Close() error {
	f.closeCalls++
	return nil
}

func TestLoginStoresCredentialsPerHost(t *testing.T) {
	fc := &fakeClient{pushBody: `{"status":"pushed"}`}
	rt := newRuntime(fc)
	ctx := context.Background()

	require.NoError(t, rt.Login(ctx, "sealos.hub:5000", "admin", "secret"))
	require.NoError(t, rt.Push(ctx, "sealos.hub:5000/library/myapp"))

	assert.Equal(t, "sealos.hub:5000/library/myapp", fc.pushedRef)
	raw, err := base64.URLEncoding.DecodeString(fc.pushAuth)
	require.NoError(t, err)
	var auth registry.AuthConfig
	require.NoError(t, json.Unmarshal(raw, &auth))
	assert.Equal(t, "admin", auth.Username)
	assert.Equal(t, "secret", auth.Password)

	// other registries get no credentials
	require.NoError(t, rt.Pull(ctx, "nginx"))
	assert.Empty(t, fc.pullAuth)
}

func TestLoginError(t *testing.T) {
	rt := newRuntime(&fakeClient{loginErr: errors.New("unauthorized: incorrect username or password")})
	err := rt.Login(context.Background(), "sealos.hub:5000", "admin", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incorrect username or password")
}

func TestPullStreamError(t *testing.T) {
	fc := &fakeClient{pullBody: `{"status":"Pulling"}` + "\n" + `{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}`}
	err := newRuntime(fc).Pull(context.Background(), "myapp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest unknown")
}

func TestSaveWritesArchive(t *testing.T) {
	fc := &fakeClient{saveBody: "tar-bytes"}
	path := filepath.Join(t.TempDir(), "myapp.tar")

	require.NoError(t, newRuntime(fc).Save(context.Background(), "myapp", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tar-bytes", string(data))
}

func TestLoadAndTag(t *testing.T) {
	fc := &fakeClient{}
	rt := newRuntime(fc)
	path := filepath.Join(t.TempDir(), "myapp.tar")
	require.NoError(t, os.WriteFile(path, []byte("archive"), 0o600))

	require.NoError(t, rt.Load(context.Background(), path))
	assert.Equal(t, "archive", fc.loaded)

	require.NoError(t, rt.Tag(context.Background(), "myapp", "sealos.hub:5000/library/myapp"))
	assert.Equal(t, [2]string{"myapp", "sealos.hub:5000/library/myapp"}, fc.tagged)

	err := rt.Load(context.Background(), filepath.Join(t.TempDir(), "missing.tar"))
	assert.Error(t, err)
}

func TestRegistryHost(t *testing.T) {
	assert.Equal(t, "docker.io", registryHost("nginx"))
	assert.Equal(t, "sealos.hub:5000", registryHost("sealos.hub:5000/library/nginx"))
	assert.Equal(t, "reg.io", registryHost("reg.io/foo/app:1"))
}
