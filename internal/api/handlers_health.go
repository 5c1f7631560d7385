// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"net/http"
	"time"
)

// Version is the application version, overridable at build time via
// -ldflags "-X github.com/velodash/velodash/internal/api.Version=...".
var Version = "dev"

// healthStatus is the payload of the full health endpoint.
type healthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	DatasetLoaded     bool    `json:"dataset_loaded"`
	DatasetVersion    int64   `json:"dataset_version"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Health returns overall health: database connectivity, whether a dataset
// has been loaded, and process uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	datasetVersion := int64(0)
	if h.db != nil {
		datasetVersion = h.db.DataVersion()
	}

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	} else if datasetVersion == 0 {
		status = "degraded"
	}

	rw.Success(healthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		DatasetLoaded:     datasetVersion > 0,
		DatasetVersion:    datasetVersion,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the Kubernetes-style liveness probe. It returns 200 as long
// as the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. It returns 200 only once the database
// is reachable and a dataset has been loaded, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	datasetLoaded := h.db != nil && h.db.DataVersion() > 0

	if !dbConnected || !datasetLoaded {
		rw.ServiceUnavailable("service not ready")
		return
	}

	rw.Success(map[string]interface{}{
		"ready":          true,
		"database":       dbConnected,
		"dataset_loaded": datasetLoaded,
	})
}
