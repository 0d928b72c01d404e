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

package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestBuild_PathResolution(t *testing.T) {
	tests := []struct {
		name          string
		kubeconfigArg string
		kubeconfigEnv string
		errorContains string
	}{
		{
			name:          "explicit invalid path",
			kubeconfigArg: "/nonexistent/path/to/kubeconfig",
			errorContains: "failed to build kube config",
		},
		{
			name:          "env var with invalid path",
			kubeconfigEnv: "/nonexistent/env/kubeconfig",
			errorContains: "failed to build kube config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KUBECONFIG", tt.kubeconfigEnv)

			_, err := Build(tt.kubeconfigArg)
			if err == nil {
				t.Fatal("Build() expected error")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Build() error = %v, want error containing %q", err, tt.errorContains)
			}
		})
	}
}

func TestBuild_InvalidFile(t *testing.T) {
	invalidConfig := filepath.Join(t.TempDir(), "invalid-kubeconfig")
	if err := os.WriteFile(invalidConfig, []byte("invalid yaml content"), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := Build(invalidConfig); err == nil {
		t.Error("Build() with invalid config should return error")
	}
}

func TestBuild_ValidFile(t *testing.T) {
	kubeconfig := `apiVersion: v1
kind: Config
clusters:
- name: test
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: test
  context:
    cluster: test
    user: test
current-context: test
users:
- name: test
  user:
    token: abc
`
	path := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(path, []byte(kubeconfig), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Build(path)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if c.Kube == nil || c.Dynamic == nil || c.Mapper == nil {
		t.Error("Build() returned incomplete clients")
	}
	if c.Config.Host != "https://127.0.0.1:6443" {
		t.Errorf("Config.Host = %q", c.Config.Host)
	}
}

func TestGet_Singleton(t *testing.T) {
	clientOnce = sync.Once{}
	cachedClients = nil
	clientErr = nil
	defer func() {
		clientOnce = sync.Once{}
		cachedClients = nil
		clientErr = nil
	}()

	c1, err1 := Get()
	c2, err2 := Get()

	// nolint:errorlint // pointer equality is the point
	if err1 != err2 {
		t.Errorf("Get() should return the same error instance: first=%v, second=%v", err1, err2)
	}
	if c1 != c2 {
		t.Error("Get() should return the same clients instance")
	}
}
