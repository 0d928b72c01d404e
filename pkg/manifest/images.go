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
	"strings"

	"gopkg.in/yaml.v3"
)

// NormalizeImage prefixes a reference without a namespace segment with
// "library/" and suffixes a reference without a tag with ":latest". Both
// checks are independent and the result is stable under repeated calls.
func NormalizeImage(image string) string {
	if !strings.Contains(image, "/") {
		image = defaultImageNamespace + image
	}
	if !strings.Contains(image, ":") {
		image += defaultImageTag
	}
	return image
}

// NormalizeImages rewrites the image of every container in the pod template
// of every Deployment document.
func (m *Manifest) NormalizeImages() {
	for _, d := range m.ofKind(kindDeployment) {
		for _, c := range items(path(d, "spec", "template", "spec", "containers")) {
			img := lookup(c, "image")
			if img == nil || img.Kind != yaml.ScalarNode || img.Value == "" {
				continue
			}
			img.Value = NormalizeImage(img.Value)
		}
	}
}

// Images returns the container images of every Deployment document in
// document order.
func (m *Manifest) Images() []string {
	var out []string
	for _, d := range m.ofKind(kindDeployment) {
		for _, c := range items(path(d, "spec", "template", "spec", "containers")) {
			if v := scalar(lookup(c, "image")); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
