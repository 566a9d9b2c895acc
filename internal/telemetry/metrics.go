// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Package telemetry exposes Prometheus metrics for the placement pipeline:
// outcomes by reason, cross-boundary flow, free edge capacity, and how many
// rounds a provisioning tree needed to settle.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	placementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamplace_placements_total",
		Help: "Total job placement attempts by outcome and failure reason (reason is empty for successes)",
	}, []string{"status", "reason"})

	crossBoundaryFlow = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamplace_cross_boundary_flow_bytes_per_second",
		Help:    "Distribution of the chosen cut's cross-boundary bandwidth per scheduled job",
		Buckets: prometheus.ExponentialBuckets(100, 4, 12),
	})

	freeEdgeSlots = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamplace_free_edge_slots",
		Help: "Free slot capacity currently available in an edge domain",
	}, []string{"domain"})

	provisionRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamplace_provision_rounds_to_quiescence",
		Help:    "Number of step rounds a provisioning tree took to reach quiescence",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
	})
)

func init() {
	prometheus.MustRegister(placementsTotal, crossBoundaryFlow, freeEdgeSlots, provisionRounds)
}

// ObservePlacement records one job's final outcome. reason is ignored
// (recorded as empty) for successful placements.
func ObservePlacement(status, reason string) {
	if status == "succeeded" {
		reason = ""
	}
	placementsTotal.WithLabelValues(status, reason).Inc()
}

// ObserveCrossBoundaryFlow records the chosen cut option's cross-boundary
// bandwidth for one scheduled job.
func ObserveCrossBoundaryFlow(bytesPerSecond int64) {
	crossBoundaryFlow.Observe(float64(bytesPerSecond))
}

// SetFreeEdgeSlots reports an edge domain's current free slot count.
func SetFreeEdgeSlots(domain string, free int64) {
	freeEdgeSlots.WithLabelValues(domain).Set(float64(free))
}

// ObserveProvisionRounds records how many rounds a provisioning tree's
// rebalance pass needed before reaching quiescence.
func ObserveProvisionRounds(rounds int) {
	provisionRounds.Observe(float64(rounds))
}

// ServeMetrics exposes /metrics on addr in a background goroutine, the same
// opt-in standalone endpoint shape used elsewhere in the stack.
func ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
