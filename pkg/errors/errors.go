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


package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// ErrorCode classifies a failure for callers, HTTP status mapping and exit
// reporting.
type ErrorCode string

// Request and service codes.
const (
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeMethodNotAllowed  ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnavailable       ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Bundle pipeline codes.
const (
	// ErrCodeMissingPortMapping: a NodePort service port has no external port.
	ErrCodeMissingPortMapping ErrorCode = "MISSING_PORT_MAPPING"
	// ErrCodeInvalidPortType: an external port is not an integer.
	ErrCodeInvalidPortType ErrorCode = "INVALID_PORT_TYPE"
	// ErrCodePortOutOfRange: an external port is outside the NodePort range.
	ErrCodePortOutOfRange ErrorCode = "PORT_OUT_OF_RANGE"
	// ErrCodeInvalidImageName: an image name has no repository to relocate.
	ErrCodeInvalidImageName ErrorCode = "INVALID_IMAGE_NAME"
	// ErrCodeExternalCall: the container runtime, registry or control plane failed.
	ErrCodeExternalCall ErrorCode = "EXTERNAL_CALL"
	// ErrCodeBadArchive: an uploaded bundle could not be unpacked or verified.
	ErrCodeBadArchive ErrorCode = "BAD_ARCHIVE"
)

// validationCodes are raised before any external call is made.
var validationCodes = map[ErrorCode]bool{
	ErrCodeInvalidRequest:     true,
	ErrCodeMissingPortMapping: true,
	ErrCodeInvalidPortType:    true,
	ErrCodePortOutOfRange:     true,
	ErrCodeInvalidImageName:   true,
}

// StructuredError is an error with a code, a message, an optional cause and
// optional key/value context for logs and API responses.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

func (e *StructuredError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// WithContext returns a copy of e with kv merged into its context.
func (e *StructuredError) WithContext(kv map[string]any) *StructuredError {
	out := *e
	out.Context = make(map[string]any, len(e.Context)+len(kv))
	maps.Copy(out.Context, e.Context)
	maps.Copy(out.Context, kv)
	return &out
}

// New returns an error with no cause.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// NewWithContext returns an error with no cause and the given context.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{Code: code, Message: message, Context: context}
}

// Wrap returns an error caused by cause.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause}
}

// WrapWithContext returns an error caused by cause, with context.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause, Context: context}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether any StructuredError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// IsValidation reports whether err was raised while validating input,
// before any external call was attempted.
func IsValidation(err error) bool {
	return validationCodes[CodeOf(err)]
}
