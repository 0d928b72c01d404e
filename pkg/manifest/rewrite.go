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

package manifest

import "github.com/NVIDIA/appbundle/pkg/bundle"

// Options configures Rewrite.
type Options struct {
	// Ports supplies the external port of every NodePort service port.
	Ports ExternalPorts
	// Placeholder is the token replaced by Domain after serialization.
	Placeholder string
	// Domain is the cluster domain substituted for Placeholder.
	Domain string
}

// Discover parses text and returns its NodePort mappings without mutating it.
func Discover(text string) ([]bundle.PortMapping, error) {
	m, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return m.NodePorts(), nil
}

// Rewrite prepares stored manifest text for application: it injects node
// ports, normalizes image references, re-serializes and substitutes the
// domain placeholder, in that order.
func Rewrite(text string, opts Options) (string, error) {
	m, err := Parse(text)
	if err != nil {
		return "", err
	}
	if err := m.InjectNodePorts(opts.Ports); err != nil {
		return "", err
	}
	m.NormalizeImages()

	out, err := m.Encode()
	if err != nil {
		return "", err
	}
	return SubstituteDomain(out, opts.Placeholder, opts.Domain), nil
}
