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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig(WithClusterDomain("cloud.example.com"))

	assert.Equal(t, RuntimeDocker, cfg.Runtime())
	assert.False(t, cfg.PlainHTTP())
	assert.Equal(t, "http://cloud.example.com:5002", cfg.PublicURL())
	assert.Equal(t, "http://cloud.example.com:32293/app/detail", cfg.DetailURL())
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithRegistry("sealos.hub:5000/", "admin", "passw0rd"),
		WithClusterDomain("cloud.example.com"),
		WithStoreRoot("/data/bundles"),
		WithKubeconfig("/etc/kube/config"),
		WithRuntime("CRANE"),
		WithPlainHTTP(true),
		WithInsecureRegistry(true),
		WithPublicURL("https://bundles.example.com/"),
		WithDetailURL("https://console.example.com/detail"),
	)

	assert.Equal(t, "sealos.hub:5000", cfg.RegistryURL())
	assert.Equal(t, "admin", cfg.RegistryUser())
	assert.Equal(t, "passw0rd", cfg.RegistryPass())
	assert.Equal(t, "/data/bundles", cfg.StoreRoot())
	assert.Equal(t, "/etc/kube/config", cfg.Kubeconfig())
	assert.Equal(t, RuntimeCrane, cfg.Runtime())
	assert.True(t, cfg.PlainHTTP())
	assert.True(t, cfg.InsecureRegistry())
	assert.Equal(t, "https://bundles.example.com", cfg.PublicURL())
	assert.Equal(t, "https://console.example.com/detail", cfg.DetailURL())
}

func TestWithCopies(t *testing.T) {
	base := NewConfig(WithRegistry("a.example.com", "u", "p"), WithStoreRoot("/a"))
	derived := base.With(WithStoreRoot("/b"), WithPlainHTTP(true))

	assert.Equal(t, "/a", base.StoreRoot())
	assert.False(t, base.PlainHTTP())
	assert.Equal(t, "/b", derived.StoreRoot())
	assert.True(t, derived.PlainHTTP())
	assert.Equal(t, "a.example.com", derived.RegistryURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name: "complete",
			opts: []Option{
				WithRegistry("sealos.hub:5000", "", ""),
				WithClusterDomain("cloud.example.com"),
				WithStoreRoot("/data"),
			},
		},
		{
			name: "missing registry",
			opts: []Option{
				WithClusterDomain("cloud.example.com"),
				WithStoreRoot("/data"),
			},
			wantErr: true,
		},
		{
			name: "missing store root",
			opts: []Option{
				WithRegistry("sealos.hub:5000", "", ""),
				WithClusterDomain("cloud.example.com"),
			},
			wantErr: true,
		},
		{
			name: "unknown runtime",
			opts: []Option{
				WithRegistry("sealos.hub:5000", "", ""),
				WithClusterDomain("cloud.example.com"),
				WithStoreRoot("/data"),
				WithRuntime("podman"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvRegistryURL, "sealos.hub:5000")
	t.Setenv(EnvRegistryUser, "admin")
	t.Setenv(EnvRegistryPass, "secret")
	t.Setenv(EnvClusterDomain, "cloud.example.com")
	t.Setenv(EnvStoreRoot, "/data/bundles")
	t.Setenv(EnvRuntime, "crane")
	t.Setenv(EnvPlainHTTP, "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sealos.hub:5000", cfg.RegistryURL())
	assert.Equal(t, "admin", cfg.RegistryUser())
	assert.Equal(t, "secret", cfg.RegistryPass())
	assert.Equal(t, "/data/bundles", cfg.StoreRoot())
	assert.Equal(t, RuntimeCrane, cfg.Runtime())
	assert.True(t, cfg.PlainHTTP())
}

func TestFromEnvInvalidBool(t *testing.T) {
	t.Setenv(EnvPlainHTTP, "sometimes")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvFile(t *testing.T) {
	// register cleanup, then unset so godotenv can populate the values
	for _, key := range []string{EnvRegistryURL, EnvClusterDomain, EnvStoreRoot} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv(EnvRuntime, "docker")

	path := filepath.Join(t.TempDir(), "bundle.env")
	content := "REGISTRY_URL=registry.local:5000\nCLUSTER_DOMAIN=example.org\nSAVE_PATH=/srv/bundles\nIMAGE_RUNTIME=crane\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := FromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "registry.local:5000", cfg.RegistryURL())
	assert.Equal(t, "example.org", cfg.ClusterDomain())
	assert.Equal(t, "/srv/bundles", cfg.StoreRoot())
	// process environment wins over file values
	assert.Equal(t, RuntimeDocker, cfg.Runtime())
}

func TestFromEnvMissingFile(t *testing.T) {
	_, err := FromEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
