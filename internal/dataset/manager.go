// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package dataset orchestrates CSV loading: it resolves the configured file
// paths, drives the database ingest, and fans the result out to the cache,
// metrics, and WebSocket layers.
package dataset

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/velodash/velodash/internal/cache"
	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/database"
	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/metrics"
	"github.com/velodash/velodash/internal/models"
	"github.com/velodash/velodash/internal/websocket"
)

// reloadTimeout bounds a single ingest. The full UCI dataset loads in well
// under a second; anything near this limit indicates a stuck filesystem.
const reloadTimeout = 2 * time.Minute

// Manager coordinates dataset loads. Reloads are serialized: a watcher
// event arriving while a reload runs waits for the previous one to finish.
type Manager struct {
	db    *database.DB
	cache *cache.Cache
	hub   *websocket.Hub
	cfg   config.DataConfig

	mu sync.Mutex
}

// NewManager creates a dataset manager. The hub may be nil during early
// startup; broadcasts are skipped until one is attached.
func NewManager(db *database.DB, c *cache.Cache, hub *websocket.Hub, cfg config.DataConfig) *Manager {
	return &Manager{
		db:    db,
		cache: c,
		hub:   hub,
		cfg:   cfg,
	}
}

// SetHub attaches the WebSocket hub used for reload notifications
func (m *Manager) SetHub(hub *websocket.Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hub = hub
}

// HourPath returns the resolved path of the hourly CSV
func (m *Manager) HourPath() string {
	return resolvePath(m.cfg.Dir, m.cfg.HourFile)
}

// DayPath returns the resolved path of the daily CSV
func (m *Manager) DayPath() string {
	return resolvePath(m.cfg.Dir, m.cfg.DayFile)
}

func resolvePath(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// Reload loads the configured CSV files into the database, invalidates the
// query cache, and notifies connected WebSocket clients. On failure the
// previously loaded dataset remains intact and the cache is left untouched.
func (m *Manager) Reload(ctx context.Context) (*models.LoadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	start := time.Now()
	record, err := m.db.LoadDataset(ctx, m.HourPath(), m.DayPath())
	if err != nil {
		metrics.RecordDatasetReload(time.Since(start), 0, 0, 0, 0, err)
		return nil, err
	}

	version := m.db.DataVersion()
	metrics.RecordDatasetReload(time.Since(start),
		record.HourlyRows, record.DailyRows, record.MergedRows, version, nil)

	m.cache.Clear()

	if m.hub != nil {
		m.hub.BroadcastDatasetReloaded(websocket.DatasetReloadedData{
			HourlyRows: record.HourlyRows,
			DailyRows:  record.DailyRows,
			MergedRows: record.MergedRows,
			Version:    version,
			DurationMs: record.DurationMS,
		})

		// KPI cards refresh without a full chart reload
		if stats, serr := m.db.Summary(ctx, database.DateRange{}); serr != nil {
			logging.Warn().Err(serr).Msg("failed to compute summary for stats broadcast")
		} else {
			m.hub.BroadcastStatsUpdate(int64(stats.TotalRentals), stats.LastDate)
		}
	}

	logging.Info().
		Int64("merged_rows", record.MergedRows).
		Int64("version", version).
		Msg("dataset reload complete")

	return record, nil
}
