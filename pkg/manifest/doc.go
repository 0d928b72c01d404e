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

// Package manifest rewrites multi-document Kubernetes manifests.
//
// It is a pure transform over manifest text with no I/O. Three operations
// are provided:
//
//   - image normalization: container images of Deployments gain a
//     "library/" namespace and a ":latest" tag when missing
//   - NodePort discovery and injection for Services of type NodePort
//   - domain placeholder substitution over the serialized text
//
// Documents are handled as yaml.v3 node trees, so re-serialization keeps
// document order and key order.
package manifest
