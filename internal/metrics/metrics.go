// CardVault - Trading Card Catalog Sync Service
// Copyright 2026 M. Freitag (mfreitag)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfreitag/cardvault

// Package metrics provides Prometheus instrumentation for the sync pipeline:
// upstream request latency and failures, rows written per table, run
// outcomes, and HTTP API traffic. Exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream catalog API metrics
	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardvault_upstream_request_duration_seconds",
			Help:    "Duration of upstream catalog API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "status"},
	)

	// Store writer metrics
	rowsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardvault_rows_upserted_total",
			Help: "Total rows written by the conflict-resolving store writer",
		},
		[]string{"table"},
	)

	// Sync run metrics
	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardvault_sync_runs_total",
			Help: "Total sync pipeline invocations by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	// HTTP API metrics
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardvault_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	apiActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardvault_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)
)

// RecordUpstreamRequest records one upstream catalog API request. status is
// the HTTP status code as a string, or "transport_error" when the request
// never produced a response.
func RecordUpstreamRequest(resource, status string, duration time.Duration) {
	upstreamRequestDuration.WithLabelValues(resource, status).Observe(duration.Seconds())
}

// RecordRowsUpserted records rows written to a table by the store writer.
func RecordRowsUpserted(table string, count int) {
	if count > 0 {
		rowsUpserted.WithLabelValues(table).Add(float64(count))
	}
}

// RecordSyncRun records a completed sync invocation. outcome is "ok" or
// "error".
func RecordSyncRun(job string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	syncRuns.WithLabelValues(job, outcome).Inc()
}

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge. Call with true when a
// request starts and false when it finishes.
func TrackActiveRequest(active bool) {
	if active {
		apiActiveRequests.Inc()
	} else {
		apiActiveRequests.Dec()
	}
}
