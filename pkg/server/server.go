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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"slices"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/appbundle/pkg/defaults"
	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/logging"
)

// Server is the HTTP front end for the bundle pipeline.
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	ready       atomic.Bool
	listenAddr  atomic.Value // string, set once the listener is bound
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server name reported by the default route.
func WithName(name string) Option {
	return func(s *Server) {
		s.config.Name = name
	}
}

// WithVersion sets the server version reported by the default and health routes.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.config.Version = version
	}
}

// WithHandler merges routes into the server's handler set.
func WithHandler(handlers map[string]http.HandlerFunc) Option {
	return func(s *Server) {
		if s.config.Handlers == nil {
			s.config.Handlers = make(map[string]http.HandlerFunc, len(handlers))
		}
		for pattern, h := range handlers {
			s.config.Handlers[pattern] = h
		}
	}
}

// WithConfig replaces the server configuration. Nil is ignored.
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// New builds a server from the environment defaults and opts. A GET / route
// describing the server is added unless the caller registered "/".
func New(opts ...Option) *Server {
	s := &Server{config: parseConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Handlers == nil {
		s.config.Handlers = make(map[string]http.HandlerFunc)
	}
	if _, ok := s.config.Handlers["/"]; !ok {
		s.config.Handlers["/"] = s.handleDefault
	}

	s.rateLimiter = rate.NewLimiter(s.config.RateLimit, s.config.RateLimitBurst)
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port)),
		Handler:           s.setupRoutes(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          logging.NewLogLogger(slog.LevelWarn, false),
	}
	return s
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints skip the middleware chain.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	for pattern, h := range s.config.Handlers {
		mux.HandleFunc(pattern, s.wrap(h))
	}
	return mux
}

// routes lists the registered patterns, sorted, without the catch-all.
func (s *Server) routes() []string {
	routes := []string{"GET /health", "GET /metrics", "GET /ready"}
	for pattern := range s.config.Handlers {
		if pattern != "/" {
			routes = append(routes, pattern)
		}
	}
	slices.Sort(routes)
	return routes
}

type serverInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Ready     bool     `json:"ready"`
	Timestamp string   `json:"timestamp"`
	Routes    []string `json:"routes"`
}

// handleDefault serves GET / and answers every unmatched path with 404.
func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method != http.MethodGet:
		WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
	case r.URL.Path != "/":
		WriteError(w, r, http.StatusNotFound, apperrors.ErrCodeNotFound,
			"route not found", false, map[string]any{"path": r.URL.Path})
	default:
		WriteJSON(w, http.StatusOK, serverInfo{
			Name:      s.config.Name,
			Version:   s.config.Version,
			Ready:     s.isReady(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Routes:    s.routes(),
		})
	}
}

func (s *Server) setReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) isReady() bool {
	return s.ready.Load()
}

// Addr returns the bound listener address once Start is serving, or the
// configured address before that.
func (s *Server) Addr() string {
	if addr, ok := s.listenAddr.Load().(string); ok {
		return addr
	}
	return s.httpServer.Addr
}

// Start binds the listener, marks the server ready and serves until ctx is
// cancelled or serving fails. Cancellation triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listenAddr.Store(ln.Addr().String())

	served := make(chan error, 1)
	go func() {
		served <- s.httpServer.Serve(ln)
	}()

	s.setReady(true)
	notifySystemd(daemon.SdNotifyReady)
	slog.Info("server listening", "address", s.Addr())

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-served:
		s.setReady(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests and waits up to the configured
// shutdown timeout for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.setReady(false)
	notifySystemd(daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down server", "timeout", s.config.ShutdownTimeout)
	return s.httpServer.Shutdown(ctx)
}

// Run serves until SIGINT, SIGTERM or ctx cancellation.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("server config",
		"address", s.httpServer.Addr,
		"rateLimit", s.config.RateLimit,
		"rateLimitBurst", s.config.RateLimitBurst,
		"writeTimeout", s.config.WriteTimeout,
		"routes", len(s.config.Handlers),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// notifySystemd reports state to systemd when running as a Type=notify unit.
// Outside systemd this is a no-op.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		slog.Warn("systemd notify failed", "state", state, "error", err)
	case sent:
		slog.Debug("systemd notified", "state", state)
	}
}
