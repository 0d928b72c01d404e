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

// Package crane implements image.Runtime without a container daemon, using
// go-containerregistry. Images are held in memory between calls: Pull and
// Load add images, Tag aliases them, Save and Push read them. Every name
// added is consumed by exactly one later Tag, Save or Push, after which the
// runtime forgets it.
package crane

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// Runtime is a daemonless image runtime.
type Runtime struct {
	insecure bool

	mu     sync.Mutex
	images map[string]*entry
	creds  map[string]authn.Authenticator
}

// entry counts the pending consumers of a name, so concurrent relocations of
// the same image do not drop it from under each other.
type entry struct {
	img  v1.Image
	refs int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithInsecure allows plain HTTP and unverified TLS registries.
func WithInsecure(insecure bool) Option {
	return func(r *Runtime) {
		r.insecure = insecure
	}
}

// New returns an empty Runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		images: make(map[string]*entry),
		creds:  make(map[string]authn.Authenticator),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements authn.Keychain: credentials from Login win, then the
// default docker config keychain.
func (r *Runtime) Resolve(res authn.Resource) (authn.Authenticator, error) {
	r.mu.Lock()
	a, ok := r.creds[res.RegistryStr()]
	r.mu.Unlock()
	if ok {
		return a, nil
	}
	return authn.DefaultKeychain.Resolve(res)
}

// Login records basic credentials for host. They are verified by the first
// registry call that needs them.
func (r *Runtime) Login(_ context.Context, host, user, pass string) error {
	reg, err := name.NewRegistry(host, r.nameOpts()...)
	if err != nil {
		return fmt.Errorf("invalid registry %s: %w", host, err)
	}
	r.mu.Lock()
	r.creds[reg.RegistryStr()] = authn.FromConfig(authn.AuthConfig{Username: user, Password: pass})
	r.mu.Unlock()
	return nil
}

// Pull fetches the image descriptor for src; layers are read lazily by Save.
func (r *Runtime) Pull(ctx context.Context, src string) error {
	img, err := crane.Pull(src, r.options(ctx)...)
	if err != nil {
		return err
	}
	return r.put(src, img)
}

// Save writes a previously pulled or loaded image as a tarball.
func (r *Runtime) Save(_ context.Context, src, path string) error {
	img, err := r.get(src)
	if err != nil {
		return err
	}
	defer r.release(src)
	return crane.Save(img, src, path)
}

// Load reads every tagged image from a tarball. Archives without repo tags
// are rejected: nothing could address their images afterwards.
func (r *Runtime) Load(_ context.Context, path string) error {
	opener := func() (io.ReadCloser, error) { return os.Open(path) }

	manifest, err := tarball.LoadManifest(opener)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	loaded := 0
	for _, desc := range manifest {
		for _, rt := range desc.RepoTags {
			tag, err := name.NewTag(rt, r.nameOpts()...)
			if err != nil {
				return fmt.Errorf("invalid tag %q in %s: %w", rt, path, err)
			}
			img, err := tarball.Image(opener, &tag)
			if err != nil {
				return fmt.Errorf("failed to load %s from %s: %w", rt, path, err)
			}
			if err := r.put(rt, img); err != nil {
				return err
			}
			loaded++
		}
	}

	if loaded == 0 {
		return fmt.Errorf("no tagged images in %s", path)
	}
	return nil
}

// Tag makes the image known as src also known as dst.
func (r *Runtime) Tag(_ context.Context, src, dst string) error {
	img, err := r.get(src)
	if err != nil {
		return err
	}
	defer r.release(src)
	return r.put(dst, img)
}

// Push uploads the image known as dst to its registry.
func (r *Runtime) Push(ctx context.Context, dst string) error {
	img, err := r.get(dst)
	if err != nil {
		return err
	}
	defer r.release(dst)
	return crane.Push(img, dst, r.options(ctx)...)
}

func (r *Runtime) options(ctx context.Context) []crane.Option {
	opts := []crane.Option{
		crane.WithContext(ctx),
		crane.WithAuthFromKeychain(r),
	}
	if r.insecure {
		opts = append(opts, crane.Insecure)
	}
	return opts
}

func (r *Runtime) nameOpts() []name.Option {
	if r.insecure {
		return []name.Option{name.Insecure}
	}
	return nil
}

// key normalizes a reference so "nginx" and "index.docker.io/library/nginx:latest"
// address the same image.
func (r *Runtime) key(ref string) (string, error) {
	parsed, err := name.ParseReference(ref, r.nameOpts()...)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return parsed.Name(), nil
}

func (r *Runtime) put(ref string, img v1.Image) error {
	k, err := r.key(ref)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.images[k]
	if !ok {
		e = &entry{}
		r.images[k] = e
	}
	e.img = img
	e.refs++
	return nil
}

func (r *Runtime) get(ref string) (v1.Image, error) {
	k, err := r.key(ref)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.images[k]; ok {
		return e.img, nil
	}
	return nil, fmt.Errorf("image %s not present in runtime", ref)
}

// release drops one pending consumer of ref and forgets the image once none
// remain.
func (r *Runtime) release(ref string) {
	k, err := r.key(ref)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.images[k]; ok {
		e.refs--
		if e.refs <= 0 {
			delete(r.images, k)
		}
	}
}
