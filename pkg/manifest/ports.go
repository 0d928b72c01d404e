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

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

// NodePort range accepted for external ports.
const (
	MinNodePort = 30000
	MaxNodePort = 32767
)

// ExternalPorts maps an internal service port, as a string, to the external
// port a caller wants exposed. Values come from decoded JSON or form input,
// so they are untyped and checked by InjectNodePorts.
type ExternalPorts map[string]any

// NodePorts returns one mapping per port of every NodePort Service, in
// document order, with ExternalPort empty.
func (m *Manifest) NodePorts() []bundle.PortMapping {
	out := make([]bundle.PortMapping, 0)
	for _, p := range m.nodePortNodes() {
		out = append(out, bundle.PortMapping{InternalPort: scalar(lookup(p, "port"))})
	}
	return out
}

// InjectNodePorts sets nodePort on every port of every NodePort Service from
// ports. Every port is validated before any is written, so on error the
// manifest is unchanged.
func (m *Manifest) InjectNodePorts(ports ExternalPorts) error {
	targets := m.nodePortNodes()
	values := make([]int, len(targets))

	for i, p := range targets {
		internal := scalar(lookup(p, "port"))
		raw, ok := ports[internal]
		if !ok {
			return apperrors.NewWithContext(apperrors.ErrCodeMissingPortMapping,
				fmt.Sprintf("ExternalPort for InternalPort %s is required", internal),
				map[string]any{"internal_port": internal})
		}
		v, ok := toPort(raw)
		if !ok {
			return apperrors.NewWithContext(apperrors.ErrCodeInvalidPortType,
				fmt.Sprintf("ExternalPort for InternalPort %s should be int", internal),
				map[string]any{"internal_port": internal, "value": fmt.Sprintf("%v", raw)})
		}
		if v < MinNodePort || v > MaxNodePort {
			return apperrors.NewWithContext(apperrors.ErrCodePortOutOfRange,
				fmt.Sprintf("ExternalPort for InternalPort %s should be between %d and %d", internal, MinNodePort, MaxNodePort),
				map[string]any{"internal_port": internal, "external_port": v})
		}
		values[i] = v
	}

	for i, p := range targets {
		setInt(p, "nodePort", values[i])
	}
	return nil
}

func (m *Manifest) nodePortNodes() []*yaml.Node {
	var out []*yaml.Node
	for _, svc := range m.ofKind(kindService) {
		spec := lookup(svc, "spec")
		if scalar(lookup(spec, "type")) != typeNodePort {
			continue
		}
		for _, p := range items(lookup(spec, "ports")) {
			if p.Kind == yaml.MappingNode {
				out = append(out, p)
			}
		}
	}
	return out
}

// toPort accepts integer values of any width, integral floats (JSON numbers
// decoded into any) and integral json.Number. Strings are not ports.
func toPort(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return clampInt64(n), true
	case uint:
		return clampUint64(uint64(n)), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return clampUint64(uint64(n)), true
	case uint64:
		return clampUint64(n), true
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return clampInt64(i), true
	default:
		return 0, false
	}
}

func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		// integral but out of any port range
		return -1, true
	}
	return int(f), true
}

// out-of-range values map to -1 so the range check rejects them
func clampInt64(i int64) int {
	if i > math.MaxInt32 || i < math.MinInt32 {
		return -1
	}
	return int(i)
}

func clampUint64(u uint64) int {
	if u > math.MaxInt32 {
		return -1
	}
	return int(u)
}
