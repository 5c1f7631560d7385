// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/velodash/velodash/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSummary(t *testing.T) {
	db := loadedTestDB(t)

	stats, err := db.Summary(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if stats.TotalRentals != 110 {
		t.Errorf("TotalRentals = %v, want 110", stats.TotalRentals)
	}
	if !almostEqual(stats.AvgRegistered, 48.5) {
		t.Errorf("AvgRegistered = %v, want 48.5", stats.AvgRegistered)
	}
	if !almostEqual(stats.AvgCasual, 6.5) {
		t.Errorf("AvgCasual = %v, want 6.5", stats.AvgCasual)
	}
	if stats.DayCount != 2 {
		t.Errorf("DayCount = %d, want 2", stats.DayCount)
	}
	if stats.PeakDate != "2011-01-03" {
		t.Errorf("PeakDate = %q, want 2011-01-03", stats.PeakDate)
	}
	if !almostEqual(stats.PeakRentals, 79.5) {
		t.Errorf("PeakRentals = %v, want 79.5", stats.PeakRentals)
	}
	if stats.FirstDate != "2011-01-01" || stats.LastDate != "2011-01-03" {
		t.Errorf("date bounds = %q..%q", stats.FirstDate, stats.LastDate)
	}
}

func TestSummaryWithDateFilter(t *testing.T) {
	db := loadedTestDB(t)

	r := DateRange{Start: date("2011-01-01"), End: date("2011-01-01")}
	stats, err := db.Summary(context.Background(), r)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if !almostEqual(stats.TotalRentals, 30.5) {
		t.Errorf("TotalRentals = %v, want 30.5 for single-day range", stats.TotalRentals)
	}
	if stats.DayCount != 1 {
		t.Errorf("DayCount = %d, want 1", stats.DayCount)
	}
}

func TestSummaryEmptyRange(t *testing.T) {
	db := loadedTestDB(t)

	r := DateRange{Start: date("2020-01-01"), End: date("2020-12-31")}
	stats, err := db.Summary(context.Background(), r)
	if err != nil {
		t.Fatalf("Summary on empty range should not error: %v", err)
	}

	if stats.TotalRentals != 0 || stats.DayCount != 0 {
		t.Errorf("empty range should yield zero KPIs, got %+v", stats)
	}
	if stats.PeakDate != "" {
		t.Errorf("PeakDate = %q, want empty for empty range", stats.PeakDate)
	}
}

func TestDailyTrend(t *testing.T) {
	db := loadedTestDB(t)

	points, err := db.DailyTrend(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("DailyTrend failed: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("expected 2 trend points, got %d", len(points))
	}
	if points[0].Date != "2011-01-01" || points[1].Date != "2011-01-03" {
		t.Errorf("trend dates = %q, %q", points[0].Date, points[1].Date)
	}
	// Daily counts carry the 1st/99th percentile clip from ingest
	if !almostEqual(points[0].Total, 30.5) || !almostEqual(points[1].Total, 79.5) {
		t.Errorf("trend totals = %v, %v, want 30.5, 79.5", points[0].Total, points[1].Total)
	}
	if !almostEqual(points[1].Casual, 7.97) || !almostEqual(points[1].Registered, 71.53) {
		t.Errorf("trend split = casual %v / registered %v, want 7.97 / 71.53",
			points[1].Casual, points[1].Registered)
	}
}

func TestWeekdayAveragesMondayFirst(t *testing.T) {
	db := loadedTestDB(t)

	averages, err := db.WeekdayAverages(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("WeekdayAverages failed: %v", err)
	}

	if len(averages) != 2 {
		t.Fatalf("expected 2 weekdays, got %d: %+v", len(averages), averages)
	}
	// Monday sorts before Saturday even though Saturday is the earlier date
	if averages[0].Weekday != "Monday" {
		t.Errorf("first weekday = %q, want Monday", averages[0].Weekday)
	}
	if !almostEqual(averages[0].AvgRentals, 79.5) {
		t.Errorf("Monday AvgRentals = %v, want 79.5", averages[0].AvgRentals)
	}
	if averages[1].Weekday != "Saturday" {
		t.Errorf("second weekday = %q, want Saturday", averages[1].Weekday)
	}
	if !almostEqual(averages[1].AvgRentals, 30.5) {
		t.Errorf("Saturday AvgRentals = %v, want 30.5", averages[1].AvgRentals)
	}
}

func TestHourlyProfile(t *testing.T) {
	db := loadedTestDB(t)

	profile, err := db.HourlyProfile(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("HourlyProfile failed: %v", err)
	}

	if len(profile) != 24 {
		t.Fatalf("expected 24 hours, got %d", len(profile))
	}
	if profile[0].WorkingDay != 30 || profile[0].NonWorkingDay != 10 {
		t.Errorf("hour 0 = working %v / non %v, want 30 / 10",
			profile[0].WorkingDay, profile[0].NonWorkingDay)
	}
	if profile[1].WorkingDay != 50 || profile[1].NonWorkingDay != 20 {
		t.Errorf("hour 1 = working %v / non %v, want 50 / 20",
			profile[1].WorkingDay, profile[1].NonWorkingDay)
	}
	// Hours with no observations are zero-filled, not missing
	for h := 2; h < 24; h++ {
		if profile[h].Hour != h {
			t.Errorf("profile[%d].Hour = %d", h, profile[h].Hour)
		}
		if profile[h].WorkingDay != 0 || profile[h].NonWorkingDay != 0 {
			t.Errorf("hour %d should be zero-filled, got %+v", h, profile[h])
		}
	}
}

func TestSeasonalBreakdown(t *testing.T) {
	db := loadedTestDB(t)

	seasons, err := db.SeasonalBreakdown(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("SeasonalBreakdown failed: %v", err)
	}

	if len(seasons) != 1 {
		t.Fatalf("expected 1 season, got %d", len(seasons))
	}
	if seasons[0].Season != 1 || seasons[0].Label != "Spring" {
		t.Errorf("season = %d (%q), want 1 (Spring)", seasons[0].Season, seasons[0].Label)
	}
	if seasons[0].TotalRentals != 110 {
		t.Errorf("TotalRentals = %v, want 110", seasons[0].TotalRentals)
	}
	if seasons[0].AvgRentals != 55 {
		t.Errorf("AvgRentals = %v, want 55", seasons[0].AvgRentals)
	}
}

func TestWeatherDistribution(t *testing.T) {
	db := loadedTestDB(t)

	shares, err := db.WeatherDistribution(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("WeatherDistribution failed: %v", err)
	}

	if len(shares) != 2 {
		t.Fatalf("expected 2 weather conditions, got %d", len(shares))
	}
	if shares[0].Condition != 1 || shares[0].Label != "Clear/Few clouds" {
		t.Errorf("first condition = %d (%q)", shares[0].Condition, shares[0].Label)
	}
	if !almostEqual(shares[0].TotalRentals, 30.5) {
		t.Errorf("clear TotalRentals = %v, want 30.5", shares[0].TotalRentals)
	}
	if !almostEqual(shares[0].Percentage, 30.5/110.0*100) {
		t.Errorf("clear Percentage = %v", shares[0].Percentage)
	}
	if !almostEqual(shares[1].Percentage, 79.5/110.0*100) {
		t.Errorf("mist Percentage = %v", shares[1].Percentage)
	}
}

func TestTemperatureScatter(t *testing.T) {
	db := loadedTestDB(t)

	scatter, err := db.TemperatureScatter(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("TemperatureScatter failed: %v", err)
	}

	if len(scatter.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(scatter.Points))
	}
	if scatter.Trendline == nil {
		t.Fatal("expected a trendline with 2 points")
	}

	// Clipping scales both axes toward the midpoint by the same factor, so
	// the clipped points stay on the exact line through (0.3, 30) and (0.6, 80)
	wantSlope := 50.0 / 0.3
	if !almostEqual(scatter.Trendline.Slope, wantSlope) {
		t.Errorf("Slope = %v, want %v", scatter.Trendline.Slope, wantSlope)
	}
	wantIntercept := 30 - wantSlope*0.3
	if !almostEqual(scatter.Trendline.Intercept, wantIntercept) {
		t.Errorf("Intercept = %v, want %v", scatter.Trendline.Intercept, wantIntercept)
	}
	if !almostEqual(scatter.Trendline.RSquared, 1) {
		t.Errorf("RSquared = %v, want 1 for perfect fit", scatter.Trendline.RSquared)
	}
}

func TestTemperatureScatterSinglePoint(t *testing.T) {
	db := loadedTestDB(t)

	r := DateRange{Start: date("2011-01-01"), End: date("2011-01-01")}
	scatter, err := db.TemperatureScatter(context.Background(), r)
	if err != nil {
		t.Fatalf("TemperatureScatter failed: %v", err)
	}

	if len(scatter.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(scatter.Points))
	}
	if scatter.Trendline != nil {
		t.Error("expected no trendline with fewer than 2 points")
	}
}

func TestHumidityHistogram(t *testing.T) {
	db := loadedTestDB(t)

	hist, err := db.HumidityHistogram(context.Background(), DateRange{})
	if err != nil {
		t.Fatalf("HumidityHistogram failed: %v", err)
	}

	if len(hist.Bins) != 20 {
		t.Fatalf("expected 20 bins, got %d", len(hist.Bins))
	}
	if len(hist.Bands) != 5 {
		t.Fatalf("expected 5 quintile bands, got %d", len(hist.Bands))
	}

	// Clipped humidity values are 0.402 and 0.598: one in each extreme bin
	if hist.Bins[0].Count != 1 {
		t.Errorf("first bin count = %d, want 1", hist.Bins[0].Count)
	}
	if hist.Bins[19].Count != 1 {
		t.Errorf("last bin count = %d, want 1", hist.Bins[19].Count)
	}
	total := 0
	for _, bin := range hist.Bins {
		total += bin.Count
	}
	if total != 2 {
		t.Errorf("total bin count = %d, want 2", total)
	}

	if hist.Bands[0].Label != "Very Low" || hist.Bands[4].Label != "Very High" {
		t.Errorf("band labels = %q..%q", hist.Bands[0].Label, hist.Bands[4].Label)
	}
	if !almostEqual(hist.Bands[0].Lower, 0.402) || !almostEqual(hist.Bands[4].Upper, 0.598) {
		t.Errorf("band bounds = %v..%v, want 0.402..0.598",
			hist.Bands[0].Lower, hist.Bands[4].Upper)
	}
}

func TestHumidityHistogramEmptyRange(t *testing.T) {
	db := loadedTestDB(t)

	r := DateRange{Start: date("2020-01-01"), End: date("2020-12-31")}
	hist, err := db.HumidityHistogram(context.Background(), r)
	if err != nil {
		t.Fatalf("HumidityHistogram on empty range failed: %v", err)
	}

	if len(hist.Bins) != 0 || len(hist.Bands) != 0 {
		t.Errorf("empty range should yield empty histogram, got %d bins / %d bands",
			len(hist.Bins), len(hist.Bands))
	}
}

func TestRentals(t *testing.T) {
	db := loadedTestDB(t)

	page, err := db.Rentals(context.Background(), DateRange{}, 10, 0)
	if err != nil {
		t.Fatalf("Rentals failed: %v", err)
	}

	if page.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", page.TotalCount)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Rows))
	}

	first := page.Rows[0]
	if first.Date != "2011-01-01" || first.DayName != "Saturday" {
		t.Errorf("first row = %q (%q)", first.Date, first.DayName)
	}
	if !almostEqual(first.Total, 30.5) || first.WeatherLabel != "Clear/Few clouds" {
		t.Errorf("first row total = %v, weather = %q", first.Total, first.WeatherLabel)
	}
}

func TestRentalsPagination(t *testing.T) {
	db := loadedTestDB(t)

	page, err := db.Rentals(context.Background(), DateRange{}, 1, 1)
	if err != nil {
		t.Fatalf("Rentals failed: %v", err)
	}

	if page.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2 regardless of page", page.TotalCount)
	}
	if len(page.Rows) != 1 {
		t.Fatalf("expected 1 row on page, got %d", len(page.Rows))
	}
	if page.Rows[0].Date != "2011-01-03" {
		t.Errorf("second page row = %q, want 2011-01-03", page.Rows[0].Date)
	}
}

func TestExportRentals(t *testing.T) {
	db := loadedTestDB(t)

	var dates []string
	err := db.ExportRentals(context.Background(), DateRange{}, func(day models.RentalDay) error {
		dates = append(dates, day.Date)
		return nil
	})
	if err != nil {
		t.Fatalf("ExportRentals failed: %v", err)
	}

	if len(dates) != 2 {
		t.Fatalf("expected 2 exported rows, got %d", len(dates))
	}
	if dates[0] != "2011-01-01" || dates[1] != "2011-01-03" {
		t.Errorf("export order = %v, want date ascending", dates)
	}
}

func TestExportRentalsCallbackError(t *testing.T) {
	db := loadedTestDB(t)

	wantErr := errors.New("stop")
	err := db.ExportRentals(context.Background(), DateRange{}, func(models.RentalDay) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}
}
