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


package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding for command results.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

var supportedFormats = []Format{FormatJSON, FormatYAML, FormatTable}

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	return !slices.Contains(supportedFormats, f)
}

// SupportedFormats returns the accepted --format values.
func SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		out[i] = string(f)
	}
	return out
}

// orDefault returns f, or JSON with a warning when f is unknown.
func (f Format) orDefault() Format {
	if f.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", f)
		return FormatJSON
	}
	return f
}

// Serializer writes a value somewhere in some format.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Writer encodes values onto an io.Writer. Writers that own a file must be
// closed.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter returns a Writer for output, os.Stdout when nil. Unknown
// formats fall back to JSON.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	return &Writer{format: format.orDefault(), output: output}
}

// NewStdoutWriter returns a Writer for os.Stdout.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// NewFileWriterOrStdout returns a Writer that creates path. An empty path,
// or one that cannot be created, yields a stdout writer instead.
func NewFileWriterOrStdout(format Format, path string) Serializer {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewStdoutWriter(format)
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create output file, writing to stdout", "path", path, "error", err)
		return NewStdoutWriter(format)
	}

	w := NewWriter(format, f)
	w.closer = f
	return w
}

// Close closes the output file, if the Writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Serialize writes v in the configured format.
func (w *Writer) Serialize(_ context.Context, v any) error {
	var err error
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		if err = enc.Encode(v); err == nil {
			err = enc.Close()
		}
	case FormatTable:
		err = writeTable(w.output, v)
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize to %s: %w", w.format, err)
	}
	return nil
}
