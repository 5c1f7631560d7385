// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package services adapts Velodash components to the suture.Service
// interface so they can run under supervision.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer matches the *http.Server lifecycle methods the wrapper needs,
// keeping the service testable with mocks.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService wraps an HTTP server as a supervised service.
//
// It translates http.Server's blocking ListenAndServe pattern into
// suture's context-aware Serve pattern:
//
//  1. Starts ListenAndServe in a goroutine
//  2. Waits for either context cancellation or server error
//  3. On shutdown, calls Shutdown with the configured timeout
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService creates a new HTTP server service wrapper.
// The shutdownTimeout determines how long to wait for active connections
// to close during graceful shutdown.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service.
// Returns nil on graceful shutdown, or an error if the server fails.
// http.ErrServerClosed is converted to nil since it's expected on shutdown.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// Use a fresh context for shutdown since the original is canceled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logging.
func (h *HTTPServerService) String() string {
	return h.name
}
