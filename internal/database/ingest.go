// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/models"
)

// measureColumns are the rental measures shared by both CSVs. The hourly
// ones are averaged per day, winsorized at the 1st/99th percentile, then
// min-max normalized to [0,1]; the day.csv ones are winsorized only.
var measureColumns = []string{"temp", "atemp", "hum", "windspeed", "casual", "registered", "cnt"}

// categoricalColumns are constant within a day; the aggregation keeps the
// value from the first hourly row of each date.
var categoricalColumns = []string{"season", "yr", "mnth", "holiday", "weekday", "workingday", "weathersit"}

// requiredHourColumns must be present in hour.csv
var requiredHourColumns = []string{
	"instant", "dteday", "season", "yr", "mnth", "hr", "holiday", "weekday",
	"workingday", "weathersit", "temp", "atemp", "hum", "windspeed",
	"casual", "registered", "cnt",
}

// requiredDayColumns must be present in day.csv
var requiredDayColumns = []string{
	"instant", "dteday", "season", "yr", "mnth", "holiday", "weekday",
	"workingday", "weathersit", "temp", "atemp", "hum", "windspeed",
	"casual", "registered", "cnt",
}

// LoadDataset ingests hour.csv and day.csv and rebuilds the derived
// merged_rentals table. The whole pipeline runs in a single transaction:
// a failed load leaves the previously loaded dataset untouched.
//
// Pipeline stages:
//  1. Stage both CSVs via read_csv_auto into temp tables
//  2. Verify required columns, then replace hourly_rentals / daily_rentals
//  3. Aggregate hourly rows to one row per date (mean of measures, first of
//     categorical flags)
//  4. Winsorize the aggregated measures at the 1st/99th percentile
//  5. Winsorize the day.csv measures at the same percentiles, then
//     left-join them as daily_* onto the aggregate
//  6. Min-max normalize the aggregated measures to [0,1]; the daily_*
//     columns stay on their clipped scale
//  7. Record the load in dataset_loads
func (db *DB) LoadDataset(ctx context.Context, hourPath, dayPath string) (record *models.LoadRecord, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("load_dataset", &err)()

	start := time.Now()

	for _, path := range []string{hourPath, dayPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op after commit
	}()

	if err := stageCSV(ctx, tx, "hourly_staging", hourPath, requiredHourColumns); err != nil {
		return nil, err
	}
	if err := stageCSV(ctx, tx, "daily_staging", dayPath, requiredDayColumns); err != nil {
		return nil, err
	}

	if err := replaceRawTables(ctx, tx); err != nil {
		return nil, err
	}

	if err := rebuildMergedTable(ctx, tx); err != nil {
		return nil, err
	}

	record = &models.LoadRecord{
		HourFile: hourPath,
		DayFile:  dayPath,
	}
	counts := map[string]*int64{
		"hourly_rentals": &record.HourlyRows,
		"daily_rentals":  &record.DailyRows,
		"merged_rentals": &record.MergedRows,
	}
	for table, dest := range counts {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
	}

	record.DurationMS = time.Since(start).Milliseconds()
	record.LoadedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dataset_loads (loaded_at, hour_file, day_file, hourly_rows, daily_rows, merged_rows, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.LoadedAt, record.HourFile, record.DayFile,
		record.HourlyRows, record.DailyRows, record.MergedRows, record.DurationMS)
	if err != nil {
		return nil, fmt.Errorf("failed to record dataset load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}

	// Cached statements may reference replaced table contents
	db.clearStatementCache()
	version := db.bumpDataVersion()

	logging.Info().
		Int64("hourly_rows", record.HourlyRows).
		Int64("daily_rows", record.DailyRows).
		Int64("merged_rows", record.MergedRows).
		Int64("duration_ms", record.DurationMS).
		Int64("version", version).
		Msg("Dataset loaded")

	return record, nil
}

// stageCSV loads a CSV file into a temp table and verifies its columns
func stageCSV(ctx context.Context, tx *sql.Tx, table, path string, required []string) error {
	query := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE %s AS SELECT * FROM read_csv_auto(?, header=true)", table)
	if _, err := tx.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return fmt.Errorf("failed to inspect staged columns for %s: %w", path, err)
	}
	defer closeQuietly(rows)

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan column name: %w", err)
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read staged columns: %w", err)
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing columns: %s", ErrSchemaMismatch, path, strings.Join(missing, ", "))
	}

	return nil
}

// replaceRawTables replaces hourly_rentals and daily_rentals with typed
// copies of the staged CSV data
func replaceRawTables(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		"DELETE FROM hourly_rentals",
		`INSERT INTO hourly_rentals
			SELECT
				CAST(instant AS INTEGER), CAST(dteday AS DATE),
				CAST(season AS SMALLINT), CAST(yr AS SMALLINT), CAST(mnth AS SMALLINT),
				CAST(hr AS SMALLINT), CAST(holiday AS SMALLINT), CAST(weekday AS SMALLINT),
				CAST(workingday AS SMALLINT), CAST(weathersit AS SMALLINT),
				CAST(temp AS DOUBLE), CAST(atemp AS DOUBLE), CAST(hum AS DOUBLE),
				CAST(windspeed AS DOUBLE),
				CAST(casual AS INTEGER), CAST(registered AS INTEGER), CAST(cnt AS INTEGER)
			FROM hourly_staging
			ORDER BY instant`,
		"DELETE FROM daily_rentals",
		`INSERT INTO daily_rentals
			SELECT
				CAST(instant AS INTEGER), CAST(dteday AS DATE),
				CAST(season AS SMALLINT), CAST(yr AS SMALLINT), CAST(mnth AS SMALLINT),
				CAST(holiday AS SMALLINT), CAST(weekday AS SMALLINT),
				CAST(workingday AS SMALLINT), CAST(weathersit AS SMALLINT),
				CAST(temp AS DOUBLE), CAST(atemp AS DOUBLE), CAST(hum AS DOUBLE),
				CAST(windspeed AS DOUBLE),
				CAST(casual AS INTEGER), CAST(registered AS INTEGER), CAST(cnt AS INTEGER)
			FROM daily_staging
			ORDER BY instant`,
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to replace raw tables: %w", err)
		}
	}
	return nil
}

// rebuildMergedTable rebuilds merged_rentals from the freshly loaded raw tables
func rebuildMergedTable(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM merged_rentals"); err != nil {
		return fmt.Errorf("failed to clear merged_rentals: %w", err)
	}

	if _, err := tx.ExecContext(ctx, mergedTableSQL()); err != nil {
		return fmt.Errorf("failed to rebuild merged_rentals: %w", err)
	}
	return nil
}

// mergedTableSQL builds the derived-table INSERT. The seven measure columns
// repeat the same clip and normalize expressions, so those fragments are
// expanded from measureColumns instead of being written out 28 times.
func mergedTableSQL() string {
	var aggExprs, clipBoundExprs, clipExprs, dailyClipExprs, normBoundExprs, normExprs []string

	for _, c := range categoricalColumns {
		aggExprs = append(aggExprs, fmt.Sprintf("arg_min(%s, instant) AS %s", c, c))
	}
	for _, m := range measureColumns {
		aggExprs = append(aggExprs, fmt.Sprintf("AVG(%s) AS %s", m, m))
		clipBoundExprs = append(clipBoundExprs,
			fmt.Sprintf("quantile_cont(%s, 0.01) AS %s_lo, quantile_cont(%s, 0.99) AS %s_hi", m, m, m, m))
		clipExprs = append(clipExprs,
			fmt.Sprintf("LEAST(GREATEST(h.%s, b.%s_lo), b.%s_hi) AS %s", m, m, m, m))
		dailyClipExprs = append(dailyClipExprs,
			fmt.Sprintf("LEAST(GREATEST(d.%s, b.%s_lo), b.%s_hi) AS %s", m, m, m, m))
		normBoundExprs = append(normBoundExprs,
			fmt.Sprintf("MIN(%s) AS %s_min, MAX(%s) AS %s_max", m, m, m, m))
		// A constant column normalizes to 0 rather than dividing by zero
		normExprs = append(normExprs, fmt.Sprintf(
			"CASE WHEN n.%s_max = n.%s_min THEN 0 ELSE (c.%s - n.%s_min) / (n.%s_max - n.%s_min) END AS %s",
			m, m, m, m, m, m, m))
	}

	catList := strings.Join(categoricalColumns, ", ")
	catSelect := "c." + strings.Join(categoricalColumns, ", c.")

	return fmt.Sprintf(`
		INSERT INTO merged_rentals (
			dteday, %s, day_name, year_month,
			temp, atemp, hum, windspeed, casual, registered, cnt,
			daily_season, daily_yr, daily_mnth, daily_holiday, daily_weekday,
			daily_workingday, daily_weathersit, daily_temp, daily_atemp,
			daily_hum, daily_windspeed, daily_casual, daily_registered, daily_cnt
		)
		WITH hourly_daily AS (
			SELECT dteday, %s
			FROM hourly_rentals
			GROUP BY dteday
		),
		clip_bounds AS (
			SELECT %s FROM hourly_daily
		),
		clipped AS (
			SELECT h.dteday, h.%s, %s
			FROM hourly_daily h CROSS JOIN clip_bounds b
		),
		norm_bounds AS (
			SELECT %s FROM clipped
		),
		daily_clip_bounds AS (
			SELECT %s FROM daily_rentals
		),
		daily_clipped AS (
			SELECT d.dteday, d.%s, %s
			FROM daily_rentals d CROSS JOIN daily_clip_bounds b
		)
		SELECT
			c.dteday, %s,
			dayname(c.dteday) AS day_name,
			strftime(c.dteday, '%%Y-%%m') AS year_month,
			%s,
			d.season, d.yr, d.mnth, d.holiday, d.weekday,
			d.workingday, d.weathersit, d.temp, d.atemp,
			d.hum, d.windspeed, d.casual, d.registered, d.cnt
		FROM clipped c
		CROSS JOIN norm_bounds n
		LEFT JOIN daily_clipped d ON c.dteday = d.dteday
		ORDER BY c.dteday`,
		catList,
		strings.Join(aggExprs, ",\n\t\t\t\t"),
		strings.Join(clipBoundExprs, ",\n\t\t\t\t"),
		strings.Join(categoricalColumns, ", h."),
		strings.Join(clipExprs, ",\n\t\t\t\t"),
		strings.Join(normBoundExprs, ",\n\t\t\t\t"),
		strings.Join(clipBoundExprs, ",\n\t\t\t\t"),
		strings.Join(categoricalColumns, ", d."),
		strings.Join(dailyClipExprs, ",\n\t\t\t\t"),
		catSelect,
		strings.Join(normExprs, ",\n\t\t\t"),
	)
}
