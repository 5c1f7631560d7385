// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/summary", "200"))

	RecordAPIRequest("GET", "/api/v1/summary", "200", 50*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/summary", "200"))
	if after != before+1 {
		t.Errorf("APIRequestsTotal = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("APIActiveRequests = %v after inc, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("APIActiveRequests = %v after dec, want %v", got, before)
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("summary"))

	RecordDBQuery("summary", 5*time.Millisecond, nil)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("summary")); got != before {
		t.Errorf("error counter moved on successful query: %v", got)
	}

	RecordDBQuery("summary", 5*time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("summary")); got != before+1 {
		t.Errorf("DBQueryErrors = %v, want %v", got, before+1)
	}
}

func TestRecordDatasetReload(t *testing.T) {
	RecordDatasetReload(2*time.Second, 17379, 731, 731, 3, nil)

	if got := testutil.ToFloat64(DatasetRows.WithLabelValues("merged_rentals")); got != 731 {
		t.Errorf("DatasetRows merged = %v, want 731", got)
	}
	if got := testutil.ToFloat64(DatasetVersion); got != 3 {
		t.Errorf("DatasetVersion = %v, want 3", got)
	}

	failBefore := testutil.ToFloat64(DatasetReloadsTotal.WithLabelValues("failure"))
	RecordDatasetReload(0, 0, 0, 0, 0, errors.New("bad csv"))
	if got := testutil.ToFloat64(DatasetReloadsTotal.WithLabelValues("failure")); got != failBefore+1 {
		t.Errorf("failure counter = %v, want %v", got, failBefore+1)
	}
	// A failed reload must not disturb the row gauges
	if got := testutil.ToFloat64(DatasetRows.WithLabelValues("merged_rentals")); got != 731 {
		t.Errorf("DatasetRows merged = %v after failed reload, want 731", got)
	}
}
