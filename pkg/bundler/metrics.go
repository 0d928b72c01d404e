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

package bundler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NVIDIA/appbundle/pkg/errors"
)

// Pipeline operations, used as metric labels.
const (
	opExport  = "export"
	opPackage = "package"
	opImport  = "import"
	opDeploy  = "deploy"
	opPublish = "publish"
)

var (
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appbundle_pipeline_duration_seconds",
			Help:    "Duration of bundle pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"operation"},
	)

	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appbundle_pipeline_runs_total",
			Help: "Total number of bundle pipeline runs by outcome code",
		},
		[]string{"operation", "code"},
	)

	bundleBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appbundle_export_bytes",
			Help:    "Size of exported bundle directories in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10),
		},
	)
)

// observe records the outcome of one pipeline run.
func observe(op string, seconds float64, err error) {
	pipelineDuration.WithLabelValues(op).Observe(seconds)
	code := "OK"
	if err != nil {
		code = string(errors.CodeOf(err))
	}
	pipelineRuns.WithLabelValues(op, code).Inc()
}
