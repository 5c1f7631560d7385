// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/velodash/velodash/internal/metrics"
)

func TestQueryDurationRecorded(t *testing.T) {
	db := loadedTestDB(t)

	if _, err := db.Summary(context.Background(), DateRange{}); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	series := testutil.CollectAndCount(metrics.DBQueryDuration, "duckdb_query_duration_seconds")
	if series < 1 {
		t.Errorf("expected at least one query duration series, got %d", series)
	}
}

func TestQueryErrorRecorded(t *testing.T) {
	db := loadedTestDB(t)

	before := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("summary"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := db.Summary(ctx, DateRange{}); err == nil {
		t.Fatal("expected query on canceled context to fail")
	}

	after := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("summary"))
	if after != before+1 {
		t.Errorf("error counter = %v, want %v", after, before+1)
	}
}
