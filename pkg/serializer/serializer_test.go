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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name   string            `json:"name" yaml:"name"`
	Images []string          `json:"images" yaml:"images"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func TestFormatIsUnknown(t *testing.T) {
	tests := []struct {
		format Format
		want   bool
	}{
		{FormatJSON, false},
		{FormatYAML, false},
		{FormatTable, false},
		{Format("xml"), true},
		{Format(""), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsUnknown(); got != tt.want {
				t.Errorf("IsUnknown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriterFormats(t *testing.T) {
	v := sample{Name: "myapp", Images: []string{"nginx:1.25"}}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatJSON, []string{`"name": "myapp"`, `"nginx:1.25"`}},
		{FormatYAML, []string{"name: myapp", "- nginx:1.25"}},
		{FormatTable, []string{"FIELD", "name", "myapp", "images[0]"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := NewWriter(tt.format, buf).Serialize(context.Background(), v); err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}
}

func TestWriterUnknownFormatDefaultsToJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewWriter(Format("xml"), buf).Serialize(context.Background(), map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	var out map[string]int
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
}

func TestTableEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewWriter(FormatTable, buf).Serialize(context.Background(), struct{}{}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "<empty>" {
		t.Errorf("got %q", buf.String())
	}
}

type app struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Images    []string `json:"images"`
	Ports     []struct {
		Port int `json:"port"`
	} `json:"ports,omitempty"`
	internal string
}

func TestTableRows(t *testing.T) {
	apps := []app{
		{Name: "shop", Namespace: "prod", Images: []string{"shop:1", "redis:7"}},
		{Name: "blog", Namespace: "dev"},
	}
	apps[0].Ports = append(apps[0].Ports, struct {
		Port int `json:"port"`
	}{Port: 30080})

	tests := []struct {
		name string
		v    any
		want []string
		deny []string
	}{
		{
			name: "list of records",
			v:    apps,
			want: []string{"NAME", "NAMESPACE", "IMAGES", "PORTS", "shop", "shop:1,redis:7", "blog"},
			deny: []string{"FIELD", "internal"},
		},
		{
			name: "wrapped list",
			v:    map[string]any{"apps": apps},
			want: []string{"NAME", "prod", "dev"},
			deny: []string{"FIELD"},
		},
		{
			name: "report with preamble",
			v: struct {
				Namespace string `json:"namespace"`
				Ready     bool   `json:"ready"`
				Apps      []app  `json:"apps"`
			}{Namespace: "prod", Ready: true, Apps: apps},
			want: []string{"FIELD", "namespace", "ready", "true", "NAME", "shop"},
		},
		{
			name: "empty list",
			v:    map[string][]app{"apps": nil},
			want: []string{"<none>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := NewWriter(FormatTable, buf).Serialize(context.Background(), tt.v); err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.deny {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestTableScalar(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewWriter(FormatTable, buf).Serialize(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "value") || !strings.Contains(buf.String(), "42") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	w := NewFileWriterOrStdout(FormatYAML, path)
	if err := w.Serialize(context.Background(), sample{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if c, ok := w.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "name: x") {
		t.Errorf("unexpected file content: %s", b)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.json":  FormatJSON,
		"a.YAML":  FormatYAML,
		"a.yml":   FormatYAML,
		"a.other": FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("json keeps numbers", func(t *testing.T) {
		path := filepath.Join(dir, "ports.json")
		if err := os.WriteFile(path, []byte(`{"8080": 30080, "9090": 30090.5}`), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := FromFile[map[string]any](path)
		if err != nil {
			t.Fatalf("FromFile() error = %v", err)
		}
		if n, ok := (*got)["8080"].(json.Number); !ok || n.String() != "30080" {
			t.Errorf("8080 = %#v, want json.Number 30080", (*got)["8080"])
		}
		if n, ok := (*got)["9090"].(json.Number); !ok || n.String() != "30090.5" {
			t.Errorf("9090 = %#v", (*got)["9090"])
		}
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "app.yaml")
		if err := os.WriteFile(path, []byte("name: myapp\nimages:\n- nginx\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := FromFile[sample](path)
		if err != nil {
			t.Fatalf("FromFile() error = %v", err)
		}
		if got.Name != "myapp" || len(got.Images) != 1 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := FromFile[sample](filepath.Join(dir, "nope.json")); err == nil {
			t.Error("expected error")
		}
	})
}
