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


package server

import (
	"mime"
	"slices"
	"strings"
)

const (
	// DefaultAPIVersion is served when the client does not ask for one.
	DefaultAPIVersion = "v1"

	vendorMediaPrefix = "application/vnd.nvidia.appbundle."
)

var supportedAPIVersions = []string{"v1"}

// apiVersionFromAccept picks the API version from a vendor media type in
// the Accept header, e.g. "application/vnd.nvidia.appbundle.v1+json".
// Unknown or missing versions fall back to DefaultAPIVersion.
func apiVersionFromAccept(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		rest, ok := strings.CutPrefix(mediaType, vendorMediaPrefix)
		if !ok {
			continue
		}
		version, _, _ := strings.Cut(rest, "+")
		if slices.Contains(supportedAPIVersions, version) {
			return version
		}
	}
	return DefaultAPIVersion
}
