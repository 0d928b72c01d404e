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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIVersionFromAccept(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", DefaultAPIVersion},
		{"application/json", DefaultAPIVersion},
		{"application/vnd.nvidia.appbundle.v1+json", "v1"},
		{"application/vnd.nvidia.appbundle.v1+json; q=0.9", "v1"},
		{"text/html, application/vnd.nvidia.appbundle.v1+json", "v1"},
		{"application/vnd.nvidia.appbundle.v2+json", DefaultAPIVersion},
		{"application/vnd.nvidia.appbundle.vBAD+json", DefaultAPIVersion},
		{"application/vnd.other.v1+json", DefaultAPIVersion},
		{";;;", DefaultAPIVersion},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, apiVersionFromAccept(tt.accept))
		})
	}
}
