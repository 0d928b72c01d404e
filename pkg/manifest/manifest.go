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
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

const (
	kindDeployment = "Deployment"
	kindService    = "Service"
	typeNodePort   = "NodePort"

	defaultImageNamespace = "library/"
	defaultImageTag       = ":latest"
)

// Manifest is an ordered sequence of parsed YAML documents. Documents are
// kept as node trees so key order and comments survive re-serialization.
type Manifest struct {
	docs []*yaml.Node
}

// Parse splits text into its documents. Empty documents are dropped.
func Parse(text string) (*Manifest, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	m := &Manifest{}
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest, "failed to parse manifest", err,
				map[string]any{"document": len(m.docs) + 1})
		}
		if isEmpty(&doc) {
			continue
		}
		m.docs = append(m.docs, &doc)
	}
	return m, nil
}

// Len returns the number of documents.
func (m *Manifest) Len() int {
	return len(m.docs)
}

// Kinds returns the kind of every document in order; documents without a
// kind yield "".
func (m *Manifest) Kinds() []string {
	kinds := make([]string, 0, len(m.docs))
	for _, doc := range m.docs {
		kinds = append(kinds, scalar(lookup(root(doc), "kind")))
	}
	return kinds
}

// Encode re-serializes the documents in order, separated by "---".
func (m *Manifest) Encode() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for i, doc := range m.docs {
		if err := enc.Encode(doc); err != nil {
			return "", apperrors.WrapWithContext(apperrors.ErrCodeInternal, "failed to encode manifest", err,
				map[string]any{"document": i + 1})
		}
	}
	if err := enc.Close(); err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to encode manifest", err)
	}
	return buf.String(), nil
}

// SubstituteDomain replaces every literal occurrence of placeholder in text
// with domain. It is a plain text replacement over serialized output.
func SubstituteDomain(text, placeholder, domain string) string {
	if placeholder == "" {
		return text
	}
	return strings.ReplaceAll(text, placeholder, domain)
}

// documents of the given kind, as their root mapping nodes
func (m *Manifest) ofKind(kind string) []*yaml.Node {
	var out []*yaml.Node
	for _, doc := range m.docs {
		r := root(doc)
		if scalar(lookup(r, "kind")) == kind {
			out = append(out, r)
		}
	}
	return out
}

func root(doc *yaml.Node) *yaml.Node {
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func isEmpty(doc *yaml.Node) bool {
	if doc.Kind == 0 {
		return true
	}
	r := root(doc)
	if r == nil || r == doc && doc.Kind == yaml.DocumentNode {
		return true
	}
	return r.Kind == yaml.ScalarNode && r.Tag == "!!null"
}

// lookup returns the value node of key in a mapping node, or nil.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// path follows a chain of mapping keys.
func path(n *yaml.Node, keys ...string) *yaml.Node {
	for _, k := range keys {
		n = lookup(n, k)
		if n == nil {
			return nil
		}
	}
	return n
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func items(n *yaml.Node) []*yaml.Node {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	return n.Content
}

// setInt replaces or appends key in a mapping node with an integer value.
func setInt(n *yaml.Node, key string, v int) {
	val := fmt.Sprintf("%d", v)
	if existing := lookup(n, key); existing != nil {
		existing.Kind = yaml.ScalarNode
		existing.Tag = "!!int"
		existing.Value = val
		existing.Style = 0
		existing.Content = nil
		return
	}
	n.Content = append(n.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: val},
	)
}
