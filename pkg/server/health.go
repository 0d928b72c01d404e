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
	"net/http"
	"time"
)

// handleHealth reports liveness. It answers as long as the process serves HTTP.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.healthStatus("healthy", ""))
}

// handleReady reports readiness. It returns 503 until Start has the
// listener running and again once shutdown begins.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady() {
		WriteJSON(w, http.StatusServiceUnavailable, s.healthStatus("not_ready", "listener is not serving"))
		return
	}
	WriteJSON(w, http.StatusOK, s.healthStatus("ready", ""))
}

func (s *Server) healthStatus(status, reason string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	}
}
