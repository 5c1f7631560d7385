// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

import (
	"errors"
	"io"

	"github.com/velodash/velodash/internal/logging"
)

// Sentinel errors returned by the ingest pipeline. Callers use errors.Is to
// classify failures when translating them to API responses.
var (
	// ErrFileNotFound indicates a source CSV file does not exist.
	ErrFileNotFound = errors.New("source file not found")

	// ErrMalformedCSV indicates DuckDB could not parse a source CSV file.
	ErrMalformedCSV = errors.New("malformed CSV file")

	// ErrSchemaMismatch indicates a source CSV is missing required columns.
	ErrSchemaMismatch = errors.New("CSV schema mismatch")

	// ErrNoDataset indicates no dataset has been loaded yet.
	ErrNoDataset = errors.New("no dataset loaded")
)

// closeWithLog closes a resource and logs any error.
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
