// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velodash/velodash/internal/models"
)

// DailyTrend returns the per-date casual, registered, and total rentals
// ordered by date.
func (db *DB) DailyTrend(ctx context.Context, r DateRange) (points []models.DailyTrendPoint, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("daily_trend", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT
		dteday,
		COALESCE(daily_casual, 0),
		COALESCE(daily_registered, 0),
		COALESCE(daily_cnt, 0)
	FROM merged_rentals
	WHERE 1=1%s
	ORDER BY dteday`, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily trend: %w", err)
	}
	defer closeQuietly(rows)

	points = []models.DailyTrendPoint{}
	for rows.Next() {
		var date time.Time
		var p models.DailyTrendPoint
		if err := rows.Scan(&date, &p.Casual, &p.Registered, &p.Total); err != nil {
			return nil, fmt.Errorf("failed to scan daily trend row: %w", err)
		}
		p.Date = date.Format("2006-01-02")
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily trend rows: %w", err)
	}

	return points, nil
}

// WeekdayAverages returns average daily rentals per weekday, Monday first.
// Weekdays absent from the filtered range are omitted.
func (db *DB) WeekdayAverages(ctx context.Context, r DateRange) (averages []models.WeekdayAverage, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("weekday_averages", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT day_name, AVG(daily_cnt), COUNT(*)
	FROM merged_rentals
	WHERE 1=1 AND daily_cnt IS NOT NULL%s
	GROUP BY day_name`, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekday averages: %w", err)
	}
	defer closeQuietly(rows)

	byName := make(map[string]models.WeekdayAverage, 7)
	for rows.Next() {
		var avg models.WeekdayAverage
		if err := rows.Scan(&avg.Weekday, &avg.AvgRentals, &avg.DayCount); err != nil {
			return nil, fmt.Errorf("failed to scan weekday average row: %w", err)
		}
		byName[avg.Weekday] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weekday average rows: %w", err)
	}

	// Monday-first chart order regardless of SQL group ordering
	averages = []models.WeekdayAverage{}
	for _, name := range weekdayOrder {
		if avg, ok := byName[name]; ok {
			averages = append(averages, avg)
		}
	}

	return averages, nil
}

// HourlyProfile returns average hourly rentals split by working day status.
// All 24 hours are present; hours without data in the range report zero.
func (db *DB) HourlyProfile(ctx context.Context, r DateRange) (profile []models.HourlyProfilePoint, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("hourly_profile", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT
		hr,
		AVG(CASE WHEN workingday = 1 THEN cnt END) AS working,
		AVG(CASE WHEN workingday = 0 THEN cnt END) AS non_working
	FROM hourly_rentals
	WHERE 1=1%s
	GROUP BY hr
	ORDER BY hr`, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly profile: %w", err)
	}
	defer closeQuietly(rows)

	profile = make([]models.HourlyProfilePoint, 24)
	for i := range profile {
		profile[i].Hour = i
	}

	for rows.Next() {
		var hour int
		var working, nonWorking sql.NullFloat64
		if err := rows.Scan(&hour, &working, &nonWorking); err != nil {
			return nil, fmt.Errorf("failed to scan hourly profile row: %w", err)
		}
		if hour < 0 || hour > 23 {
			continue
		}
		profile[hour].WorkingDay = working.Float64
		profile[hour].NonWorkingDay = nonWorking.Float64
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hourly profile rows: %w", err)
	}

	return profile, nil
}

// SeasonalBreakdown returns rental totals and averages per season from the
// daily dataset, ordered by season code.
func (db *DB) SeasonalBreakdown(ctx context.Context, r DateRange) (seasons []models.SeasonStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("seasonal_breakdown", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT season, SUM(cnt), AVG(cnt), COUNT(*)
	FROM daily_rentals
	WHERE 1=1%s
	GROUP BY season
	ORDER BY season`, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasonal breakdown: %w", err)
	}
	defer closeQuietly(rows)

	seasons = []models.SeasonStats{}
	for rows.Next() {
		var s models.SeasonStats
		if err := rows.Scan(&s.Season, &s.TotalRentals, &s.AvgRentals, &s.DayCount); err != nil {
			return nil, fmt.Errorf("failed to scan seasonal breakdown row: %w", err)
		}
		s.Label = SeasonLabel(s.Season)
		seasons = append(seasons, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seasonal breakdown rows: %w", err)
	}

	return seasons, nil
}
