// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package middleware provides HTTP middleware shared by all API routes:
// request ID propagation and Prometheus instrumentation.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/velodash/velodash/internal/logging"
)

type contextKey string

// RequestIDKey is the context key carrying the request ID
const RequestIDKey contextKey = "request_id"

// RequestID middleware generates a unique ID for each request and adds it
// to both the response header and request context. Upstream proxies may
// supply their own via X-Request-ID.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Add to response header for client visibility
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)

		next(w, r.WithContext(ctx))
	}
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
