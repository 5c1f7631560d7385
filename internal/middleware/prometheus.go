// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/velodash/velodash/internal/metrics"
)

// PrometheusMetrics creates middleware for recording Prometheus metrics
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapper := &metricsResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(wrapper, r)

		metrics.RecordAPIRequest(
			r.Method,
			r.URL.Path,
			strconv.Itoa(wrapper.statusCode),
			time.Since(start),
		)
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
