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

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/appbundle/pkg/bundler"
	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/image/crane"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "appbundled", name)
	assert.Equal(t, "dev", versionDefault)
	assert.NotEmpty(t, version)
	assert.NotEmpty(t, commit)
	assert.NotEmpty(t, date)
}

func TestNewRuntime(t *testing.T) {
	t.Run("crane", func(t *testing.T) {
		rt, closeFn, err := NewRuntime(config.NewConfig(config.WithRuntime("crane")))
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &crane.Runtime{}, rt)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, _, err := NewRuntime(config.NewConfig(config.WithRuntime("podman")))
		assert.Error(t, err)
	})
}

func TestRoutes(t *testing.T) {
	b, err := bundler.New(bundler.WithConfig(config.NewConfig(config.WithStoreRoot(t.TempDir()))))
	require.NoError(t, err)

	routes := Routes(b)
	assert.Len(t, routes, 6)

	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/apps")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/api/deployAppWithImage", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
