// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package metrics provides Prometheus instrumentation for the HTTP API,
// the DuckDB layer, dataset loads, the analytics cache, and WebSocket
// connections. Metrics are exposed at /metrics via promhttp.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Dataset Metrics
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_rows",
			Help: "Current number of rows per dataset table",
		},
		[]string{"table"},
	)

	DatasetReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_reloads_total",
			Help: "Total number of dataset load attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	DatasetReloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataset_reload_duration_seconds",
			Help:    "Duration of dataset loads in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DatasetVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_version",
			Help: "Current dataset version (increments on every reload)",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of analytics cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of analytics cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached analytics entries",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)
)

// RecordAPIRequest records a completed API request
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a database query duration and any error
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordDatasetReload records a dataset load attempt with row counts on success
func RecordDatasetReload(duration time.Duration, hourlyRows, dailyRows, mergedRows int64, version int64, err error) {
	if err != nil {
		DatasetReloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	DatasetReloadsTotal.WithLabelValues("success").Inc()
	DatasetReloadDuration.Observe(duration.Seconds())
	DatasetRows.WithLabelValues("hourly_rentals").Set(float64(hourlyRows))
	DatasetRows.WithLabelValues("daily_rentals").Set(float64(dailyRows))
	DatasetRows.WithLabelValues("merged_rentals").Set(float64(mergedRows))
	DatasetVersion.Set(float64(version))
}
