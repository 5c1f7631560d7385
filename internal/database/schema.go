// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaStatements defines the Velodash tables.
//
// hourly_rentals and daily_rentals mirror the raw hour.csv and day.csv
// files. merged_rentals is the derived dashboard table: one row per date
// with hourly-averaged measures (winsorized then min-max normalized),
// calendar features, and the daily_* columns joined from day.csv with
// their measures winsorized at the same percentiles (not normalized).
// dataset_loads is an append-only audit trail of ingest runs.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS hourly_rentals (
		instant    INTEGER NOT NULL,
		dteday     DATE NOT NULL,
		season     SMALLINT NOT NULL,
		yr         SMALLINT NOT NULL,
		mnth       SMALLINT NOT NULL,
		hr         SMALLINT NOT NULL,
		holiday    SMALLINT NOT NULL,
		weekday    SMALLINT NOT NULL,
		workingday SMALLINT NOT NULL,
		weathersit SMALLINT NOT NULL,
		temp       DOUBLE NOT NULL,
		atemp      DOUBLE NOT NULL,
		hum        DOUBLE NOT NULL,
		windspeed  DOUBLE NOT NULL,
		casual     INTEGER NOT NULL,
		registered INTEGER NOT NULL,
		cnt        INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS daily_rentals (
		instant    INTEGER NOT NULL,
		dteday     DATE NOT NULL,
		season     SMALLINT NOT NULL,
		yr         SMALLINT NOT NULL,
		mnth       SMALLINT NOT NULL,
		holiday    SMALLINT NOT NULL,
		weekday    SMALLINT NOT NULL,
		workingday SMALLINT NOT NULL,
		weathersit SMALLINT NOT NULL,
		temp       DOUBLE NOT NULL,
		atemp      DOUBLE NOT NULL,
		hum        DOUBLE NOT NULL,
		windspeed  DOUBLE NOT NULL,
		casual     INTEGER NOT NULL,
		registered INTEGER NOT NULL,
		cnt        INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS merged_rentals (
		dteday           DATE NOT NULL,
		season           SMALLINT NOT NULL,
		yr               SMALLINT NOT NULL,
		mnth             SMALLINT NOT NULL,
		holiday          SMALLINT NOT NULL,
		weekday          SMALLINT NOT NULL,
		workingday       SMALLINT NOT NULL,
		weathersit       SMALLINT NOT NULL,
		day_name         VARCHAR NOT NULL,
		year_month       VARCHAR NOT NULL,
		temp             DOUBLE NOT NULL,
		atemp            DOUBLE NOT NULL,
		hum              DOUBLE NOT NULL,
		windspeed        DOUBLE NOT NULL,
		casual           DOUBLE NOT NULL,
		registered       DOUBLE NOT NULL,
		cnt              DOUBLE NOT NULL,
		daily_season     SMALLINT,
		daily_yr         SMALLINT,
		daily_mnth       SMALLINT,
		daily_holiday    SMALLINT,
		daily_weekday    SMALLINT,
		daily_workingday SMALLINT,
		daily_weathersit SMALLINT,
		daily_temp       DOUBLE,
		daily_atemp      DOUBLE,
		daily_hum        DOUBLE,
		daily_windspeed  DOUBLE,
		daily_casual     DOUBLE,
		daily_registered DOUBLE,
		daily_cnt        DOUBLE
	)`,

	`CREATE SEQUENCE IF NOT EXISTS dataset_loads_seq`,

	`CREATE TABLE IF NOT EXISTS dataset_loads (
		id          BIGINT PRIMARY KEY DEFAULT nextval('dataset_loads_seq'),
		loaded_at   TIMESTAMP NOT NULL DEFAULT current_timestamp,
		hour_file   VARCHAR NOT NULL,
		day_file    VARCHAR NOT NULL,
		hourly_rows BIGINT NOT NULL,
		daily_rows  BIGINT NOT NULL,
		merged_rows BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL
	)`,
}

// createTables creates all tables if they do not exist
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
