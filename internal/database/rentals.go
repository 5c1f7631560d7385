// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/velodash/velodash/internal/models"
)

// rentalSelectColumns is the projection shared by Rentals and ExportRentals
const rentalSelectColumns = `
	dteday, day_name, year_month,
	COALESCE(daily_cnt, 0), COALESCE(daily_registered, 0), COALESCE(daily_casual, 0),
	COALESCE(daily_temp, 0), COALESCE(daily_hum, 0), COALESCE(daily_windspeed, 0),
	COALESCE(daily_weathersit, 0)`

// Rentals returns one page of merged daily rental rows ordered by date,
// with the total row count for pagination metadata.
func (db *DB) Rentals(ctx context.Context, r DateRange, limit, offset int) (page *models.RentalPage, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("rentals", &err)()

	clauses, args := r.conditions("dteday")
	where := whereSQL(clauses)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM merged_rentals WHERE 1=1%s", where)
	countStmt, err := db.getStmt(ctx, countQuery)
	if err != nil {
		return nil, err
	}

	page = &models.RentalPage{Rows: []models.RentalDay{}}
	if err := countStmt.QueryRowContext(ctx, args...).Scan(&page.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count rentals: %w", err)
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM merged_rentals
	WHERE 1=1%s
	ORDER BY dteday
	LIMIT ? OFFSET ?`, rentalSelectColumns, where)

	queryArgs := append(append([]any{}, args...), limit, offset)
	rows, err := db.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rentals: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		day, err := scanRentalDay(rows)
		if err != nil {
			return nil, err
		}
		page.Rows = append(page.Rows, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rental rows: %w", err)
	}

	return page, nil
}

// ExportRentals streams every merged rental row in the range to fn in date
// order. Streaming avoids materializing the full dataset for CSV export.
func (db *DB) ExportRentals(ctx context.Context, r DateRange, fn func(models.RentalDay) error) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("export_rentals", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT %s
	FROM merged_rentals
	WHERE 1=1%s
	ORDER BY dteday`, rentalSelectColumns, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query rentals for export: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		day, err := scanRentalDay(rows)
		if err != nil {
			return err
		}
		if err := fn(day); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating export rows: %w", err)
	}

	return nil
}

// rowScanner abstracts *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRentalDay scans one row of rentalSelectColumns
func scanRentalDay(rows rowScanner) (models.RentalDay, error) {
	var day models.RentalDay
	var date time.Time

	err := rows.Scan(
		&date, &day.DayName, &day.YearMonth,
		&day.Total, &day.Registered, &day.Casual,
		&day.Temperature, &day.Humidity, &day.Windspeed,
		&day.Condition)
	if err != nil {
		return day, fmt.Errorf("failed to scan rental row: %w", err)
	}

	day.Date = date.Format("2006-01-02")
	day.WeatherLabel = WeatherLabel(day.Condition)
	return day, nil
}
