// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/velodash/velodash/internal/models"
)

// humidityBinCount is the number of equal-width histogram bins
const humidityBinCount = 20

// WeatherDistribution returns total rentals grouped by weather condition
// with percentage shares, for the weather donut chart.
func (db *DB) WeatherDistribution(ctx context.Context, r DateRange) (shares []models.WeatherShare, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("weather_distribution", &err)()

	clauses, args := r.conditions("dteday")
	query := fmt.Sprintf(`
	SELECT daily_weathersit, SUM(daily_cnt), COUNT(*)
	FROM merged_rentals
	WHERE 1=1 AND daily_weathersit IS NOT NULL AND daily_cnt IS NOT NULL%s
	GROUP BY daily_weathersit
	ORDER BY daily_weathersit`, whereSQL(clauses))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather distribution: %w", err)
	}
	defer closeQuietly(rows)

	shares = []models.WeatherShare{}
	var grandTotal float64
	for rows.Next() {
		var s models.WeatherShare
		if err := rows.Scan(&s.Condition, &s.TotalRentals, &s.DayCount); err != nil {
			return nil, fmt.Errorf("failed to scan weather distribution row: %w", err)
		}
		s.Label = WeatherLabel(s.Condition)
		grandTotal += s.TotalRentals
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weather distribution rows: %w", err)
	}

	if grandTotal > 0 {
		for i := range shares {
			shares[i].Percentage = shares[i].TotalRentals / grandTotal * 100
		}
	}

	return shares, nil
}

// TemperatureScatter returns (temperature, rentals) points colored by
// weather condition plus an ordinary least squares trendline. The trendline
// is omitted when fewer than two points exist.
func (db *DB) TemperatureScatter(ctx context.Context, r DateRange) (scatter *models.TemperatureScatter, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("temperature_scatter", &err)()

	clauses, args := r.conditions("dteday")
	where := whereSQL(clauses)

	query := fmt.Sprintf(`
	SELECT daily_temp, daily_cnt, COALESCE(daily_weathersit, 0)
	FROM merged_rentals
	WHERE 1=1 AND daily_temp IS NOT NULL AND daily_cnt IS NOT NULL%s
	ORDER BY dteday`, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query temperature scatter: %w", err)
	}
	defer closeQuietly(rows)

	scatter = &models.TemperatureScatter{Points: []models.TemperaturePoint{}}
	for rows.Next() {
		var p models.TemperaturePoint
		if err := rows.Scan(&p.Temperature, &p.Rentals, &p.Condition); err != nil {
			return nil, fmt.Errorf("failed to scan temperature scatter row: %w", err)
		}
		scatter.Points = append(scatter.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating temperature scatter rows: %w", err)
	}

	if len(scatter.Points) < 2 {
		return scatter, nil
	}

	fitQuery := fmt.Sprintf(`
	SELECT
		regr_slope(daily_cnt, daily_temp),
		regr_intercept(daily_cnt, daily_temp),
		regr_r2(daily_cnt, daily_temp)
	FROM merged_rentals
	WHERE 1=1 AND daily_temp IS NOT NULL AND daily_cnt IS NOT NULL%s`, where)

	var slope, intercept, r2 sql.NullFloat64
	if err := db.conn.QueryRowContext(ctx, fitQuery, args...).Scan(&slope, &intercept, &r2); err != nil {
		return nil, fmt.Errorf("failed to fit temperature trendline: %w", err)
	}

	// regr_slope returns NULL when temperature is constant across the range
	if slope.Valid && intercept.Valid && !math.IsNaN(slope.Float64) {
		scatter.Trendline = &models.Trendline{
			Slope:     slope.Float64,
			Intercept: intercept.Float64,
			RSquared:  r2.Float64,
		}
	}

	return scatter, nil
}

// HumidityHistogram returns 20 equal-width humidity bins plus quintile band
// boundaries. An empty range yields empty bins and bands.
func (db *DB) HumidityHistogram(ctx context.Context, r DateRange) (hist *models.HumidityHistogram, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observeQuery("humidity_histogram", &err)()

	clauses, args := r.conditions("dteday")
	where := whereSQL(clauses)

	boundsQuery := fmt.Sprintf(`
	SELECT
		MIN(daily_hum), MAX(daily_hum),
		quantile_cont(daily_hum, 0.2),
		quantile_cont(daily_hum, 0.4),
		quantile_cont(daily_hum, 0.6),
		quantile_cont(daily_hum, 0.8)
	FROM merged_rentals
	WHERE 1=1 AND daily_hum IS NOT NULL%s`, where)

	var minHum, maxHum, q20, q40, q60, q80 sql.NullFloat64
	err = db.conn.QueryRowContext(ctx, boundsQuery, args...).Scan(
		&minHum, &maxHum, &q20, &q40, &q60, &q80)
	if err != nil {
		return nil, fmt.Errorf("failed to query humidity bounds: %w", err)
	}

	hist = &models.HumidityHistogram{
		Bins:  []models.HumidityBin{},
		Bands: []models.HumidityBand{},
	}
	if !minHum.Valid || !maxHum.Valid {
		return hist, nil
	}

	// Quintile boundaries may coincide when the distribution has heavy ties;
	// clients merge bands with equal bounds.
	quintiles := []float64{minHum.Float64, q20.Float64, q40.Float64, q60.Float64, q80.Float64, maxHum.Float64}
	for i, label := range humidityBandLabels {
		hist.Bands = append(hist.Bands, models.HumidityBand{
			Label: label,
			Lower: quintiles[i],
			Upper: quintiles[i+1],
		})
	}

	width := (maxHum.Float64 - minHum.Float64) / humidityBinCount
	for i := 0; i < humidityBinCount; i++ {
		hist.Bins = append(hist.Bins, models.HumidityBin{
			Lower: minHum.Float64 + float64(i)*width,
			Upper: minHum.Float64 + float64(i+1)*width,
		})
	}

	if width == 0 {
		// All observations share one humidity value
		var count int
		countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM merged_rentals
		WHERE 1=1 AND daily_hum IS NOT NULL%s`, where)
		if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count humidity rows: %w", err)
		}
		hist.Bins[0].Upper = maxHum.Float64
		hist.Bins[0].Count = count
		return hist, nil
	}

	binQuery := fmt.Sprintf(`
	SELECT
		LEAST(CAST(FLOOR((daily_hum - ?) / ?) AS INTEGER), %d) AS bin,
		COUNT(*)
	FROM merged_rentals
	WHERE 1=1 AND daily_hum IS NOT NULL%s
	GROUP BY bin
	ORDER BY bin`, humidityBinCount-1, where)

	binArgs := append([]any{minHum.Float64, width}, args...)
	rows, err := db.conn.QueryContext(ctx, binQuery, binArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query humidity bins: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var bin, count int
		if err := rows.Scan(&bin, &count); err != nil {
			return nil, fmt.Errorf("failed to scan humidity bin row: %w", err)
		}
		if bin >= 0 && bin < humidityBinCount {
			hist.Bins[bin].Count = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating humidity bin rows: %w", err)
	}

	return hist, nil
}
