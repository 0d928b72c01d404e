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


package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Port = 9090

	s := New(
		WithConfig(cfg),
		WithName("appbundled"),
		WithVersion("1.2.3"),
		WithHandler(map[string]http.HandlerFunc{"GET /api/apps": ok(http.StatusOK)}),
		WithHandler(map[string]http.HandlerFunc{"DELETE /api/apps": ok(http.StatusOK)}),
		WithConfig(nil),
	)

	assert.Equal(t, "appbundled", s.config.Name)
	assert.Equal(t, "1.2.3", s.config.Version)
	assert.Equal(t, ":9090", s.httpServer.Addr)
	assert.Contains(t, s.config.Handlers, "GET /api/apps")
	assert.Contains(t, s.config.Handlers, "DELETE /api/apps")
	assert.Contains(t, s.config.Handlers, "/")
	assert.NotNil(t, s.rateLimiter)
	assert.Equal(t, ":9090", s.Addr())
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "server", New().config.Name)
}

func TestSystemEndpoints(t *testing.T) {
	s := New(WithVersion("1.2.3"))

	tests := []struct {
		name       string
		ready      bool
		target     string
		wantStatus int
		wantState  string
	}{
		{"health while starting", false, "/health", http.StatusOK, "healthy"},
		{"ready while starting", false, "/ready", http.StatusServiceUnavailable, "not_ready"},
		{"ready once serving", true, "/ready", http.StatusOK, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.setReady(tt.ready)
			w := serve(s, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			// System endpoints bypass the middleware chain.
			assert.Empty(t, w.Header().Get(headerRequestID))
		})
	}

	t.Run("metrics", func(t *testing.T) {
		serve(s, http.MethodGet, "/")
		w := serve(s, http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "appbundle_http_requests_total")
	})
}

func TestDefaultRoute(t *testing.T) {
	s := New(WithName("appbundled"), WithHandler(map[string]http.HandlerFunc{
		"POST /api/exportApp": ok(http.StatusOK),
	}))

	t.Run("describes server", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/")
		require.Equal(t, http.StatusOK, w.Code)

		var info serverInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, "appbundled", info.Name)
		assert.False(t, info.Ready)
		assert.Equal(t, []string{"GET /health", "GET /metrics", "GET /ready", "POST /api/exportApp"}, info.Routes)
	})

	t.Run("unknown path", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "/api/nope")
	})

	t.Run("wrong method", func(t *testing.T) {
		assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodPost, "/").Code)
	})

	t.Run("custom root kept", func(t *testing.T) {
		custom := New(WithHandler(map[string]http.HandlerFunc{"/": ok(http.StatusTeapot)}))
		assert.Equal(t, http.StatusTeapot, serve(custom, http.MethodGet, "/").Code)
	})
}

func TestRoutesAreWrapped(t *testing.T) {
	cfg := NewConfig()
	cfg.RateLimit = 1
	cfg.RateLimitBurst = 1
	s := New(WithConfig(cfg), WithHandler(map[string]http.HandlerFunc{
		"POST /api/uploadApp": ok(http.StatusOK),
		"GET /api/boom": func(http.ResponseWriter, *http.Request) {
			panic("boom")
		},
	}))

	first := serve(s, http.MethodPost, "/api/uploadApp")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.NotEmpty(t, first.Header().Get(headerRequestID))

	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodPost, "/api/uploadApp").Code)

	// Health stays reachable while the limiter is empty.
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)

	s.rateLimiter.SetBurst(10)
	s.rateLimiter.SetLimit(1000)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, http.StatusInternalServerError, serve(s, http.MethodGet, "/api/boom").Code)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = time.Second
	s := New(WithConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	require.Eventually(t, s.isReady, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown timed out")
	}
	assert.False(t, s.isReady())
}

func TestStartListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = taken.Addr().(*net.TCPAddr).Port
	err = New(WithConfig(cfg)).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}
