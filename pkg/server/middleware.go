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
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

const (
	headerRequestID  = "X-Request-Id"
	headerAPIVersion = "X-API-Version"
)

// middleware decorates a route handler.
type middleware func(http.HandlerFunc) http.HandlerFunc

// chain lists the route middleware outermost first.
func (s *Server) chain() []middleware {
	return []middleware{
		s.instrument,
		s.tagRequest,
		s.recoverPanic,
		s.throttle,
		s.logRequest,
	}
}

// wrap applies the middleware chain to h.
func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	mws := s.chain()
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// tagRequest attaches the negotiated API version and a request ID to the
// request context and echoes both as response headers. A caller-supplied
// X-Request-Id is kept only when it is a valid UUID.
func (s *Server) tagRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := apiVersionFromAccept(r.Header.Get("Accept"))

		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(headerAPIVersion, version)
		w.Header().Set(headerRequestID, id)

		ctx := context.WithValue(r.Context(), contextKeyAPIVersion, version)
		ctx = context.WithValue(ctx, contextKeyRequestID, id)
		next(w, r.WithContext(ctx))
	}
}

// throttle rejects requests once the shared token bucket is empty.
func (s *Server) throttle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if !s.rateLimiter.Allow() {
			rateLimitRejects.Inc()
			h.Set("Retry-After", "1")
			WriteError(w, r, http.StatusTooManyRequests, apperrors.ErrCodeRateLimitExceeded,
				"Rate limit exceeded", true, map[string]any{
					"limit": float64(s.config.RateLimit),
					"burst": s.config.RateLimitBurst,
				})
			return
		}

		h.Set("X-RateLimit-Limit", strconv.Itoa(int(s.config.RateLimit)))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(int(s.rateLimiter.Tokens())))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
		next(w, r)
	}
}

// recoverPanic turns a handler panic into a 500 response.
func (s *Server) recoverPanic(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			panicRecoveries.Inc()
			requestLogger(r).Error("panic recovered", "error", fmt.Sprint(v))
			WriteError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternal,
				"Internal server error", true, nil)
		}()
		next(w, r)
	}
}

// logRequest logs each request on completion. Pipeline calls that mutate
// state are logged at info, reads at debug.
func (s *Server) logRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next(rw, r)

		level := slog.LevelDebug
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			level = slog.LevelInfo
		}
		if rw.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		requestLogger(r).Log(r.Context(), level, "request completed",
			"status", rw.Status(),
			"bytes", rw.Written(),
			"duration", time.Since(start).String(),
		)
	}
}

// requestLogger returns the default logger annotated with the request's
// identity and, when present, the bundle it targets.
func requestLogger(r *http.Request) *slog.Logger {
	attrs := []any{
		"requestID", RequestID(r),
		"method", r.Method,
		"path", r.URL.Path,
	}
	q := r.URL.Query()
	for _, key := range []string{"namespace", "appname"} {
		if v := q.Get(key); v != "" {
			attrs = append(attrs, key, v)
		}
	}
	return slog.Default().With(attrs...)
}
