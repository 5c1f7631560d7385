// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"time"

	"github.com/velodash/velodash/internal/metrics"
)

// observeQuery reports a query method's duration and outcome to Prometheus.
// Deferred with the method's named error return so the final error is seen:
//
//	defer observeQuery("summary", &err)()
func observeQuery(operation string, err *error) func() {
	start := time.Now()
	return func() {
		metrics.RecordDBQuery(operation, time.Since(start), *err)
	}
}
