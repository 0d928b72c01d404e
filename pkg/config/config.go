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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Image runtime backends.
const (
	// RuntimeDocker relocates images through the local Docker daemon.
	RuntimeDocker = "docker"
	// RuntimeCrane relocates images registry-to-registry without a daemon.
	RuntimeCrane = "crane"
)

// DomainPlaceholder is the token substituted with the cluster domain in manifests.
const DomainPlaceholder = "CLUSTER_DOMAIN"

// Environment variables recognized by FromEnv.
const (
	EnvRegistryURL      = "REGISTRY_URL"
	EnvRegistryUser     = "REGISTRY_USER"
	EnvRegistryPass     = "REGISTRY_PASS"
	EnvClusterDomain    = "CLUSTER_DOMAIN"
	EnvStoreRoot        = "SAVE_PATH"
	EnvKubeconfig       = "KUBECONFIG"
	EnvRuntime          = "IMAGE_RUNTIME"
	EnvPlainHTTP        = "REGISTRY_PLAIN_HTTP"
	EnvInsecureRegistry = "REGISTRY_INSECURE"
	EnvPublicURL        = "PUBLIC_URL"
	EnvDetailURL        = "DETAIL_URL"
)

const (
	defaultPublicPort = 5002
	defaultDetailPort = 32293
	defaultDetailPath = "/app/detail"
)

// Config holds the settings every bundle component is constructed with.
// Fields are read-only after creation; build a new Config to change them.
type Config struct {
	registryURL      string
	registryUser     string
	registryPass     string
	clusterDomain    string
	storeRoot        string
	kubeconfig       string
	runtime          string
	plainHTTP        bool
	insecureRegistry bool
	publicURL        string
	detailURL        string
}

// RegistryURL returns the destination registry host (e.g. "sealos.hub:5000").
func (c *Config) RegistryURL() string {
	return c.registryURL
}

// RegistryUser returns the destination registry user.
func (c *Config) RegistryUser() string {
	return c.registryUser
}

// RegistryPass returns the destination registry password.
func (c *Config) RegistryPass() string {
	return c.registryPass
}

// ClusterDomain returns the value substituted for DomainPlaceholder.
func (c *Config) ClusterDomain() string {
	return c.clusterDomain
}

// StoreRoot returns the root directory of the bundle store.
func (c *Config) StoreRoot() string {
	return c.storeRoot
}

// Kubeconfig returns the kubeconfig path; empty means automatic discovery.
func (c *Config) Kubeconfig() string {
	return c.kubeconfig
}

// Runtime returns the image runtime backend name.
func (c *Config) Runtime() string {
	return c.runtime
}

// PlainHTTP reports whether registries are contacted over plain HTTP.
func (c *Config) PlainHTTP() bool {
	return c.plainHTTP
}

// InsecureRegistry reports whether registry TLS verification is skipped.
func (c *Config) InsecureRegistry() bool {
	return c.insecureRegistry
}

// PublicURL returns the externally reachable base URL of the bundle service,
// used to build download links.
func (c *Config) PublicURL() string {
	if c.publicURL != "" {
		return c.publicURL
	}
	return fmt.Sprintf("http://%s:%d", c.clusterDomain, defaultPublicPort)
}

// DetailURL returns the application detail page URL returned after a deploy.
func (c *Config) DetailURL() string {
	if c.detailURL != "" {
		return c.detailURL
	}
	return fmt.Sprintf("http://%s:%d%s", c.clusterDomain, defaultDetailPort, defaultDetailPath)
}

// Validate checks that the settings required by the pipelines are present.
func (c *Config) Validate() error {
	var missing []string
	if c.registryURL == "" {
		missing = append(missing, EnvRegistryURL)
	}
	if c.clusterDomain == "" {
		missing = append(missing, EnvClusterDomain)
	}
	if c.storeRoot == "" {
		missing = append(missing, EnvStoreRoot)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.runtime != RuntimeDocker && c.runtime != RuntimeCrane {
		return fmt.Errorf("invalid image runtime: %q (must be %q or %q)", c.runtime, RuntimeDocker, RuntimeCrane)
	}
	return nil
}

// Option is a functional option for configuring Config instances.
type Option func(*Config)

// WithRegistry sets the destination registry and its credentials.
func WithRegistry(url, user, pass string) Option {
	return func(c *Config) {
		c.registryURL = strings.TrimSuffix(url, "/")
		c.registryUser = user
		c.registryPass = pass
	}
}

// WithClusterDomain sets the cluster domain substituted into manifests.
func WithClusterDomain(domain string) Option {
	return func(c *Config) {
		c.clusterDomain = domain
	}
}

// WithStoreRoot sets the bundle store root directory.
func WithStoreRoot(root string) Option {
	return func(c *Config) {
		c.storeRoot = root
	}
}

// WithKubeconfig sets an explicit kubeconfig path.
func WithKubeconfig(path string) Option {
	return func(c *Config) {
		c.kubeconfig = path
	}
}

// WithRuntime selects the image runtime backend. Empty keeps the default.
func WithRuntime(runtime string) Option {
	return func(c *Config) {
		if runtime != "" {
			c.runtime = strings.ToLower(runtime)
		}
	}
}

// WithPlainHTTP talks to registries over plain HTTP.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Config) {
		c.plainHTTP = enabled
	}
}

// WithInsecureRegistry skips registry TLS verification.
func WithInsecureRegistry(enabled bool) Option {
	return func(c *Config) {
		c.insecureRegistry = enabled
	}
}

// WithPublicURL overrides the base URL used in download links.
func WithPublicURL(url string) Option {
	return func(c *Config) {
		c.publicURL = strings.TrimSuffix(url, "/")
	}
}

// WithDetailURL overrides the application detail URL returned by deploy.
func WithDetailURL(url string) Option {
	return func(c *Config) {
		c.detailURL = url
	}
}

// NewConfig creates a Config with defaults and applies the given options.
func NewConfig(options ...Option) *Config {
	c := &Config{
		runtime: RuntimeDocker,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// With returns a copy of c with options applied. c is not modified.
func (c *Config) With(options ...Option) *Config {
	cp := *c
	for _, opt := range options {
		opt(&cp)
	}
	return &cp
}

// FromEnv builds a Config from the process environment. When envFiles are
// given they are loaded first with godotenv; variables already set in the
// environment take precedence over file values. A missing default ".env"
// file is not an error.
func FromEnv(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files %v: %w", envFiles, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	plainHTTP, err := envBool(EnvPlainHTTP)
	if err != nil {
		return nil, err
	}
	insecure, err := envBool(EnvInsecureRegistry)
	if err != nil {
		return nil, err
	}

	return NewConfig(
		WithRegistry(os.Getenv(EnvRegistryURL), os.Getenv(EnvRegistryUser), os.Getenv(EnvRegistryPass)),
		WithClusterDomain(os.Getenv(EnvClusterDomain)),
		WithStoreRoot(os.Getenv(EnvStoreRoot)),
		WithKubeconfig(os.Getenv(EnvKubeconfig)),
		WithRuntime(os.Getenv(EnvRuntime)),
		WithPlainHTTP(plainHTTP),
		WithInsecureRegistry(insecure),
		WithPublicURL(os.Getenv(EnvPublicURL)),
		WithDetailURL(os.Getenv(EnvDetailURL)),
	), nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	return b, nil
}
