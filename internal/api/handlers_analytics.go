// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"net/http"

	"github.com/velodash/velodash/internal/database"
)

// Summary returns the headline KPIs for the selected date range: total
// rentals, average daily registered and casual counts, and the peak day.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseDateRange(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	data, err := h.cached("summary:"+rng.CacheKey(), func() (interface{}, error) {
		return h.db.Summary(r.Context(), rng)
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(data)
}

// TrendsDaily returns the daily rental counts with registered/casual split,
// the data behind the main time-series chart.
func (h *Handler) TrendsDaily(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "trends:daily", func(rng database.DateRange) (interface{}, error) {
		return h.db.DailyTrend(r.Context(), rng)
	})
}

// TrendsWeekday returns average rentals per weekday, Monday first.
func (h *Handler) TrendsWeekday(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "trends:weekday", func(rng database.DateRange) (interface{}, error) {
		return h.db.WeekdayAverages(r.Context(), rng)
	})
}

// TrendsHourly returns the 24-hour rental profile split by working day.
func (h *Handler) TrendsHourly(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "trends:hourly", func(rng database.DateRange) (interface{}, error) {
		return h.db.HourlyProfile(r.Context(), rng)
	})
}

// TrendsSeasonal returns per-season totals and averages.
func (h *Handler) TrendsSeasonal(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "trends:seasonal", func(rng database.DateRange) (interface{}, error) {
		return h.db.SeasonalBreakdown(r.Context(), rng)
	})
}

// WeatherDistribution returns the share of days per weather condition.
func (h *Handler) WeatherDistribution(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "weather:distribution", func(rng database.DateRange) (interface{}, error) {
		return h.db.WeatherDistribution(r.Context(), rng)
	})
}

// WeatherTemperature returns the temperature/rentals scatter with an OLS
// trendline when at least two points are in range.
func (h *Handler) WeatherTemperature(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "weather:temperature", func(rng database.DateRange) (interface{}, error) {
		return h.db.TemperatureScatter(r.Context(), rng)
	})
}

// WeatherHumidity returns the 20-bin humidity histogram and band averages.
func (h *Handler) WeatherHumidity(w http.ResponseWriter, r *http.Request) {
	h.analyticsList(w, r, "weather:humidity", func(rng database.DateRange) (interface{}, error) {
		return h.db.HumidityHistogram(r.Context(), rng)
	})
}

// analyticsList is the shared shape of the chart endpoints: parse the date
// range, consult the cache, fall through to the database.
func (h *Handler) analyticsList(w http.ResponseWriter, r *http.Request, op string, fetch func(database.DateRange) (interface{}, error)) {
	rng, ok := h.parseDateRange(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	data, err := h.cached(op+":"+rng.CacheKey(), func() (interface{}, error) {
		return fetch(rng)
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(data)
}
