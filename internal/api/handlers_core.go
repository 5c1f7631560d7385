// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/velodash/velodash/internal/database"
	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/models"
	ws "github.com/velodash/velodash/internal/websocket"
)

// Rentals returns a page of the merged daily rentals table.
func (h *Handler) Rentals(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseDateRange(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.parsePagination(w, r)
	if !ok {
		return
	}
	rw := NewResponseWriter(w, r)

	page, err := h.db.Rentals(r.Context(), rng, limit, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(page.Rows, &PaginationMeta{
		Total:   page.TotalCount,
		Count:   len(page.Rows),
		Offset:  offset,
		Limit:   limit,
		HasMore: int64(offset+len(page.Rows)) < page.TotalCount,
	})
}

// Dataset returns metadata about the loaded dataset: row counts, date
// bounds, version, and the most recent load record.
func (h *Handler) Dataset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	info, err := h.db.DatasetInfo(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(info)
}

// DatasetReload triggers a manual reload of the CSV files. A missing or
// malformed file returns 400 with a specific error code and leaves the
// current dataset intact.
func (h *Handler) DatasetReload(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.manager == nil {
		rw.ServiceUnavailable("dataset manager not configured")
		return
	}

	record, err := h.manager.Reload(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, database.ErrFileNotFound):
			rw.Error(http.StatusBadRequest, ErrCodeDatasetError, "dataset file not found: "+err.Error())
		case errors.Is(err, database.ErrMalformedCSV):
			rw.Error(http.StatusBadRequest, ErrCodeDatasetError, "dataset file could not be parsed: "+err.Error())
		case errors.Is(err, database.ErrSchemaMismatch):
			rw.Error(http.StatusBadRequest, ErrCodeDatasetError, "dataset file is missing required columns: "+err.Error())
		default:
			rw.DatabaseError(err)
		}
		return
	}

	rw.Success(record)
}

// ExportRentalsCSV streams the merged daily rentals for the selected range
// as a CSV download. Rows are written as they are scanned, so even the full
// dataset never needs to be buffered.
func (h *Handler) ExportRentalsCSV(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.parseDateRange(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rentals.csv"`)

	cw := csv.NewWriter(w)
	header := []string{
		"date", "day_name", "year_month", "total", "registered", "casual",
		"temperature", "humidity", "windspeed", "weather",
	}
	if err := cw.Write(header); err != nil {
		logging.Error().Err(err).Msg("failed to write CSV header")
		return
	}

	err := h.db.ExportRentals(r.Context(), rng, func(day models.RentalDay) error {
		return cw.Write([]string{
			day.Date,
			day.DayName,
			day.YearMonth,
			formatFloat(day.Total),
			formatFloat(day.Registered),
			formatFloat(day.Casual),
			formatFloat(day.Temperature),
			formatFloat(day.Humidity),
			formatFloat(day.Windspeed),
			day.WeatherLabel,
		})
	})
	if err != nil {
		// Headers are already sent; all we can do is log and stop
		logging.Error().Err(err).Msg("CSV export aborted")
		return
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.Error().Err(err).Msg("failed to flush CSV export")
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WebSocket upgrades the connection and registers the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("websocket hub not running")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
