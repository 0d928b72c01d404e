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

// Package fake provides an in-memory image.Runtime that records calls.
package fake

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Call is one recorded runtime invocation.
type Call struct {
	Stage string
	Args  []string
}

// String renders the call as "stage arg1 arg2".
func (c Call) String() string {
	return strings.TrimSpace(c.Stage + " " + strings.Join(c.Args, " "))
}

// Runtime records every call. Save writes a small placeholder archive so
// bundle layouts can be inspected. Errors can be injected per stage and
// argument with FailOn.
type Runtime struct {
	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

// NewRuntime returns an empty fake runtime.
func NewRuntime() *Runtime {
	return &Runtime{fail: make(map[string]error)}
}

// FailOn makes the call "stage arg" return err. An empty arg matches every
// call of that stage.
func (r *Runtime) FailOn(stage, arg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[stage+"|"+arg] = err
}

// Calls returns a copy of the recorded calls.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallStrings returns the recorded calls rendered with Call.String.
func (r *Runtime) CallStrings() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

func (r *Runtime) record(stage string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Stage: stage, Args: args})
	if err, ok := r.fail[stage+"|"]; ok {
		return err
	}
	if len(args) > 0 {
		if err, ok := r.fail[stage+"|"+args[0]]; ok {
			return err
		}
	}
	return nil
}

func (r *Runtime) Login(_ context.Context, registry, user, _ string) error {
	return r.record("login", registry, user)
}

func (r *Runtime) Pull(_ context.Context, name string) error {
	return r.record("pull", name)
}

func (r *Runtime) Save(_ context.Context, name, path string) error {
	if err := r.record("save", name, path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("image archive for %s\n", name)), 0o600)
}

func (r *Runtime) Load(_ context.Context, path string) error {
	return r.record("load", path)
}

func (r *Runtime) Tag(_ context.Context, src, dst string) error {
	return r.record("tag", src, dst)
}

func (r *Runtime) Push(_ context.Context, name string) error {
	return r.record("push", name)
}
