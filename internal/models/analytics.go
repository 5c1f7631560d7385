// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package models defines the response types shared between the database
// layer and the HTTP API.
package models

import "time"

// SummaryStats holds the headline KPI figures for the selected date range.
type SummaryStats struct {
	TotalRentals  float64 `json:"total_rentals"`
	AvgRegistered float64 `json:"avg_registered"`
	AvgCasual     float64 `json:"avg_casual"`
	DayCount      int     `json:"day_count"`
	PeakDate      string  `json:"peak_date,omitempty"`
	PeakRentals   float64 `json:"peak_rentals"`
	FirstDate     string  `json:"first_date,omitempty"`
	LastDate      string  `json:"last_date,omitempty"`
}

// DailyTrendPoint is one date on the daily rentals trend line.
type DailyTrendPoint struct {
	Date       string  `json:"date"`
	Casual     float64 `json:"casual"`
	Registered float64 `json:"registered"`
	Total      float64 `json:"total"`
}

// WeekdayAverage is the average daily rentals for one weekday.
// Responses are ordered Monday through Sunday.
type WeekdayAverage struct {
	Weekday    string  `json:"weekday"`
	AvgRentals float64 `json:"avg_rentals"`
	DayCount   int     `json:"day_count"`
}

// HourlyProfilePoint is the average hourly rentals for one hour of the day,
// split by working day status. All 24 hours are always present.
type HourlyProfilePoint struct {
	Hour          int     `json:"hour"`
	WorkingDay    float64 `json:"working_day"`
	NonWorkingDay float64 `json:"non_working_day"`
}

// SeasonStats holds rental totals for one season.
type SeasonStats struct {
	Season       int     `json:"season"`
	Label        string  `json:"label"`
	TotalRentals float64 `json:"total_rentals"`
	AvgRentals   float64 `json:"avg_rentals"`
	DayCount     int     `json:"day_count"`
}

// WeatherShare is the rental share attributed to one weather condition.
type WeatherShare struct {
	Condition    int     `json:"condition"`
	Label        string  `json:"label"`
	TotalRentals float64 `json:"total_rentals"`
	DayCount     int     `json:"day_count"`
	Percentage   float64 `json:"percentage"`
}

// TemperaturePoint is one (temperature, rentals) observation colored by
// weather condition.
type TemperaturePoint struct {
	Temperature float64 `json:"temperature"`
	Rentals     float64 `json:"rentals"`
	Condition   int     `json:"condition"`
}

// Trendline holds ordinary least squares fit parameters for a scatter plot.
type Trendline struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// TemperatureScatter is the temperature-vs-rentals scatter with an optional
// fitted trendline. Trendline is nil when fewer than two points exist.
type TemperatureScatter struct {
	Points    []TemperaturePoint `json:"points"`
	Trendline *Trendline         `json:"trendline,omitempty"`
}

// HumidityBin is one equal-width histogram bin over daily humidity.
type HumidityBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// HumidityBand is one quintile band of the humidity distribution.
type HumidityBand struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// HumidityHistogram is the humidity distribution with quintile band bounds.
type HumidityHistogram struct {
	Bins  []HumidityBin  `json:"bins"`
	Bands []HumidityBand `json:"bands"`
}

// RentalDay is one row of the merged daily rentals table as shown in the
// dashboard data table.
type RentalDay struct {
	Date         string  `json:"date"`
	DayName      string  `json:"day_name"`
	YearMonth    string  `json:"year_month"`
	Total        float64 `json:"total"`
	Registered   float64 `json:"registered"`
	Casual       float64 `json:"casual"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	Windspeed    float64 `json:"windspeed"`
	Condition    int     `json:"condition"`
	WeatherLabel string  `json:"weather_label"`
}

// RentalPage is a page of merged rental rows with the total row count for
// pagination.
type RentalPage struct {
	Rows       []RentalDay `json:"rows"`
	TotalCount int64       `json:"total_count"`
}

// LoadRecord is one entry from the dataset load audit table.
type LoadRecord struct {
	LoadedAt   time.Time `json:"loaded_at"`
	HourFile   string    `json:"hour_file"`
	DayFile    string    `json:"day_file"`
	HourlyRows int64     `json:"hourly_rows"`
	DailyRows  int64     `json:"daily_rows"`
	MergedRows int64     `json:"merged_rows"`
	DurationMS int64     `json:"duration_ms"`
}

// DatasetInfo describes the currently loaded dataset.
type DatasetInfo struct {
	HourlyRows int64       `json:"hourly_rows"`
	DailyRows  int64       `json:"daily_rows"`
	MergedRows int64       `json:"merged_rows"`
	FirstDate  string      `json:"first_date,omitempty"`
	LastDate   string      `json:"last_date,omitempty"`
	Version    int64       `json:"version"`
	LastLoad   *LoadRecord `json:"last_load,omitempty"`
}
