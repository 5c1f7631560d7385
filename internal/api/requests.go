// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/velodash/velodash/internal/database"
	"github.com/velodash/velodash/internal/validation"
)

const dateLayout = "2006-01-02"

// dateRangeRequest carries the optional start/end query parameters.
type dateRangeRequest struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// parseDateRange extracts and validates the start/end query parameters.
// An inverted range (start after end) writes a 400 and returns false.
func (h *Handler) parseDateRange(w http.ResponseWriter, r *http.Request) (database.DateRange, bool) {
	rw := NewResponseWriter(w, r)

	req := dateRangeRequest{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return database.DateRange{}, false
	}

	var rng database.DateRange
	if req.Start != "" {
		t, err := time.Parse(dateLayout, req.Start)
		if err != nil {
			rw.BadRequest("invalid start date")
			return database.DateRange{}, false
		}
		rng.Start = &t
	}
	if req.End != "" {
		t, err := time.Parse(dateLayout, req.End)
		if err != nil {
			rw.BadRequest("invalid end date")
			return database.DateRange{}, false
		}
		rng.End = &t
	}

	if err := rng.Validate(); err != nil {
		rw.BadRequest(err.Error())
		return database.DateRange{}, false
	}

	return rng, true
}

// paginationRequest carries the limit/offset query parameters.
type paginationRequest struct {
	Limit  int `validate:"min=1"`
	Offset int `validate:"min=0"`
}

// parsePagination extracts limit and offset, applying the configured default
// and maximum page sizes. Invalid values write a 400 and return false.
func (h *Handler) parsePagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	rw := NewResponseWriter(w, r)

	limit = h.config.API.DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return 0, 0, false
		}
		limit = v
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("offset must be an integer")
			return 0, 0, false
		}
		offset = v
	}

	req := paginationRequest{Limit: limit, Offset: offset}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return 0, 0, false
	}

	if limit > h.config.API.MaxPageSize {
		rw.BadRequest(fmt.Sprintf("limit must be at most %d", h.config.API.MaxPageSize))
		return 0, 0, false
	}

	return limit, offset, true
}
