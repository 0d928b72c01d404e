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

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStructuredLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "appbundled", "v1.2.3", slog.LevelInfo)

	logger.Info("bundle exported", "namespace", "shop", "appname", "cart")
	logger.Debug("suppressed at info")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}

	for key, want := range map[string]string{
		"msg":       "bundle exported",
		"module":    "appbundled",
		"version":   "v1.2.3",
		"namespace": "shop",
		"appname":   "cart",
	} {
		if got, _ := entry[key].(string); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestStructuredLoggerDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "appbundle", "dev", slog.LevelDebug)
	logger.Debug("relocating image")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	src, ok := entry["source"].(map[string]any)
	if !ok {
		t.Fatalf("expected source attribute at debug level, got %v", entry)
	}
	if file, _ := src["file"].(string); file != "logging_test.go" {
		t.Errorf("expected short file name, got %q", file)
	}
}
