// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/velodash/velodash/internal/metrics"
)

func TestPrometheusMetricsRecordsRequest(t *testing.T) {
	before := testutil.ToFloat64(
		metrics.APIRequestsTotal.WithLabelValues("GET", "/metrics-mw-test", "204"))

	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics-mw-test", nil)
	handler(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(
		metrics.APIRequestsTotal.WithLabelValues("GET", "/metrics-mw-test", "204"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestPrometheusMetricsDefaultStatus(t *testing.T) {
	before := testutil.ToFloat64(
		metrics.APIRequestsTotal.WithLabelValues("GET", "/metrics-mw-default", "200"))

	// Handler that never calls WriteHeader is recorded as 200
	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics-mw-default", nil)
	handler(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(
		metrics.APIRequestsTotal.WithLabelValues("GET", "/metrics-mw-default", "200"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}
