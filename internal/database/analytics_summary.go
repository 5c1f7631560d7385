// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velodash/velodash/internal/models"
)

// Summary computes the headline KPI figures over the merged dataset.
// An empty date range yields zero values, not an error.
func (db *DB) Summary(ctx context.Context, r DateRange) (_ *models.SummaryStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("summary", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT
		COALESCE(SUM(daily_cnt), 0)        AS total_rentals,
		COALESCE(AVG(daily_registered), 0) AS avg_registered,
		COALESCE(AVG(daily_casual), 0)     AS avg_casual,
		COUNT(*)                           AS day_count,
		arg_max(dteday, daily_cnt)         AS peak_date,
		COALESCE(MAX(daily_cnt), 0)        AS peak_rentals,
		MIN(dteday)                        AS first_date,
		MAX(dteday)                        AS last_date
	FROM merged_rentals
	WHERE 1=1%s`, whereSQL(clauses))

	var stats models.SummaryStats
	var peakDate, firstDate, lastDate sql.NullTime

	err = db.conn.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalRentals, &stats.AvgRegistered, &stats.AvgCasual,
		&stats.DayCount, &peakDate, &stats.PeakRentals, &firstDate, &lastDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	if peakDate.Valid {
		stats.PeakDate = peakDate.Time.Format("2006-01-02")
	}
	if firstDate.Valid {
		stats.FirstDate = firstDate.Time.Format("2006-01-02")
	}
	if lastDate.Valid {
		stats.LastDate = lastDate.Time.Format("2006-01-02")
	}

	return &stats, nil
}

// DatasetInfo describes the currently loaded dataset: table row counts,
// date bounds, version, and the most recent load audit record.
func (db *DB) DatasetInfo(ctx context.Context) (info *models.DatasetInfo, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("dataset_info", &err)()

	info = &models.DatasetInfo{Version: db.DataVersion()}

	counts := map[string]*int64{
		"hourly_rentals": &info.HourlyRows,
		"daily_rentals":  &info.DailyRows,
		"merged_rentals": &info.MergedRows,
	}
	for table, dest := range counts {
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
	}

	var firstDate, lastDate sql.NullTime
	err = db.conn.QueryRowContext(ctx,
		"SELECT MIN(dteday), MAX(dteday) FROM merged_rentals").Scan(&firstDate, &lastDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset bounds: %w", err)
	}
	if firstDate.Valid {
		info.FirstDate = firstDate.Time.Format("2006-01-02")
	}
	if lastDate.Valid {
		info.LastDate = lastDate.Time.Format("2006-01-02")
	}

	var load models.LoadRecord
	err = db.conn.QueryRowContext(ctx, `
		SELECT loaded_at, hour_file, day_file, hourly_rows, daily_rows, merged_rows, duration_ms
		FROM dataset_loads
		ORDER BY id DESC
		LIMIT 1`).Scan(
		&load.LoadedAt, &load.HourFile, &load.DayFile,
		&load.HourlyRows, &load.DailyRows, &load.MergedRows, &load.DurationMS)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Never loaded - leave LastLoad nil
	case err != nil:
		return nil, fmt.Errorf("failed to query last dataset load: %w", err)
	default:
		info.LastLoad = &load
	}

	return info, nil
}
