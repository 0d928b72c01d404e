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
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
// The body is encoded before headers go out so a marshal failure never
// leaves a partial response.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("json encoding failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("response write failed", "error", err)
	}
}

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code apperrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	WriteJSON(w, statusCode, ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// WriteErrorFromErr maps err to a status code and writes it. Errors that are
// not *apperrors.StructuredError are reported as INTERNAL with fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string, extraDetails map[string]any) {
	var se *apperrors.StructuredError
	if errors.As(err, &se) && se != nil {
		details := mergeDetails(se.Context, extraDetails)
		if se.Cause != nil {
			details = mergeDetails(details, map[string]any{"error": se.Cause.Error()})
		}
		WriteError(w, r, HTTPStatusFromCode(se.Code), se.Code, se.Message, retryableFromCode(se.Code), details)
		return
	}

	details := extraDetails
	if err != nil {
		details = mergeDetails(details, map[string]any{"error": err.Error()})
	}
	WriteError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternal, fallbackMessage, true, details)
}

// HTTPStatusFromCode maps an error code to the HTTP status returned to callers.
func HTTPStatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidRequest,
		apperrors.ErrCodeMissingPortMapping,
		apperrors.ErrCodeInvalidPortType,
		apperrors.ErrCodePortOutOfRange,
		apperrors.ErrCodeInvalidImageName,
		apperrors.ErrCodeBadArchive:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeExternalCall:
		return http.StatusBadGateway
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func retryableFromCode(code apperrors.ErrorCode) bool {
	switch code {
	case apperrors.ErrCodeTimeout,
		apperrors.ErrCodeUnavailable,
		apperrors.ErrCodeRateLimitExceeded,
		apperrors.ErrCodeExternalCall,
		apperrors.ErrCodeInternal:
		return true
	default:
		return false
	}
}

func mergeDetails(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
