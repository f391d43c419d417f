// Copyright 2010-2024 Google LLC
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

package extractor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/google/or-tools/backbone/oracle"
)

const (
	statusLabel = "status"
	resultLabel = "result"
)

// Metrics holds the Prometheus collectors updated by an Extractor.
type Metrics struct {
	solves        *prometheus.CounterVec
	solveDuration prometheus.Histogram
	chunks        *prometheus.CounterVec
	backbones     prometheus.Counter
	candidates    prometheus.Gauge
	chunkSize     prometheus.Gauge
}

// NewMetrics creates the extractor collectors and registers them on `reg`.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backbone_solves_total",
				Help: "Monotonic count of oracle solves, by status",
			},
			[]string{statusLabel},
		),
		solveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backbone_solve_duration_seconds",
				Help:    "The duration of an oracle solve",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backbone_chunks_total",
				Help: "Monotonic count of tested chunks, by result",
			},
			[]string{resultLabel},
		),
		backbones: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backbone_variables_total",
				Help: "Number of variables proven to be backbone",
			},
		),
		candidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backbone_candidates",
				Help: "Number of binary variables not yet resolved",
			},
		),
		chunkSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backbone_chunk_size",
				Help: "Size of the chunk being tested",
			},
		),
	}
	reg.MustRegister(m.solves, m.solveDuration, m.chunks, m.backbones, m.candidates, m.chunkSize)
	return m
}

// The methods below accept a nil receiver, for extractors without metrics.

func (m *Metrics) observeSolve(res *oracle.Result) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(res.Status.String()).Inc()
	m.solveDuration.Observe(res.Runtime.Seconds())
}

func (m *Metrics) observeChunk(size, candidates int) {
	if m == nil {
		return
	}
	m.chunkSize.Set(float64(size))
	m.candidates.Set(float64(candidates))
}

func (m *Metrics) observeResult(backbone bool, size, candidates int) {
	if m == nil {
		return
	}
	if backbone {
		m.chunks.WithLabelValues("backbone").Inc()
		m.backbones.Add(float64(size))
	} else {
		m.chunks.WithLabelValues("not_backbone").Inc()
	}
	m.candidates.Set(float64(candidates))
}
