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

// Package docker implements image.Runtime on the Docker Engine API.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/google/renameio/v2"
)

// apiClient is the subset of the Docker client used by Runtime.
type apiClient interface {
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
	ImageSave(ctx context.Context, imageIDs []string, opts ...client.ImageSaveOption) (io.ReadCloser, error)
	ImageLoad(ctx context.Context, input io.Reader, opts ...client.ImageLoadOption) (image.LoadResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	Close() error
}

// Runtime drives the local Docker daemon. Credentials from Login are kept per
// registry host and sent with pulls and pushes to that host.
type Runtime struct {
	cli apiClient

	mu    sync.RWMutex
	auths map[string]string
}

// New connects to the daemon configured by the DOCKER_* environment.
func New() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return newRuntime(cli), nil
}

func newRuntime(cli apiClient) *Runtime {
	return &Runtime{cli: cli, auths: make(map[string]string)}
}

// Close releases the client connection.
func (r *Runtime) Close() error {
	return r.cli.Close()
}

// Login verifies credentials with the registry and remembers them.
func (r *Runtime) Login(ctx context.Context, host, user, pass string) error {
	auth := registry.AuthConfig{
		Username:      user,
		Password:      pass,
		ServerAddress: host,
	}
	if _, err := r.cli.RegistryLogin(ctx, auth); err != nil {
		return fmt.Errorf("login to %s: %w", host, err)
	}
	encoded, err := registry.EncodeAuthConfig(auth)
	if err != nil {
		return fmt.Errorf("failed to encode credentials for %s: %w", host, err)
	}
	r.mu.Lock()
	r.auths[host] = encoded
	r.mu.Unlock()
	return nil
}

// Pull pulls name and waits for the pull to finish.
func (r *Runtime) Pull(ctx context.Context, name string) error {
	rc, err := r.cli.ImagePull(ctx, name, image.PullOptions{RegistryAuth: r.authFor(name)})
	if err != nil {
		return fmt.Errorf("pull %s: %w", name, err)
	}
	defer rc.Close()
	return drain(rc)
}

// Save writes the image as a tar archive to path. The file only appears once
// the archive is complete.
func (r *Runtime) Save(ctx context.Context, name, path string) error {
	rc, err := r.cli.ImageSave(ctx, []string{name})
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer rc.Close()

	f, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Cleanup()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return f.CloseAtomicallyReplace()
}

// Load loads a tar archive into the daemon.
func (r *Runtime) Load(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	resp, err := r.cli.ImageLoad(ctx, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.JSON {
		return drain(resp.Body)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// Tag adds dst as a reference to src.
func (r *Runtime) Tag(ctx context.Context, src, dst string) error {
	if err := r.cli.ImageTag(ctx, src, dst); err != nil {
		return fmt.Errorf("tag %s %s: %w", src, dst, err)
	}
	return nil
}

// Push pushes name and waits for the push to finish.
func (r *Runtime) Push(ctx context.Context, name string) error {
	rc, err := r.cli.ImagePush(ctx, name, image.PushOptions{RegistryAuth: r.authFor(name)})
	if err != nil {
		return fmt.Errorf("push %s: %w", name, err)
	}
	defer rc.Close()
	return drain(rc)
}

// authFor returns the stored credentials for the registry host of name.
func (r *Runtime) authFor(name string) string {
	host := registryHost(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.auths[host]
}

func registryHost(name string) string {
	named, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		// best effort: first segment when it looks like a host
		if i := strings.IndexByte(name, '/'); i > 0 {
			return name[:i]
		}
		return ""
	}
	return reference.Domain(named)
}

// drain reads a daemon progress stream to completion and surfaces any error
// message the daemon reported inside it.
func drain(r io.Reader) error {
	return jsonmessage.DisplayJSONMessagesStream(r, io.Discard, 0, false, nil)
}
