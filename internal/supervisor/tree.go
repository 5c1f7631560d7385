// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package supervisor builds the suture supervision tree that runs
// Velodash's long-lived components.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns production-ready defaults matching suture's
// built-in values.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree manages the supervisor structure for Velodash.
//
// The tree has two layers:
//   - messaging: WebSocket hub and the dataset file watcher
//   - api: HTTP server
//
// A crash in the messaging layer (say, a watcher failure on a vanished
// data directory) restarts independently of the API layer, so the
// dashboard keeps serving the already loaded dataset.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewTree creates a new supervisor tree with the given configuration.
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	// Apply defaults for zero values
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog exposes the hook via (&Handler{Logger: logger}).MustHook()
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Child supervisors inherit the EventHook when added to the root
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("velodash", rootSpec)
	messaging := suture.New("messaging-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(messaging)
	root.Add(api)

	return &Tree{
		root:      root,
		messaging: messaging,
		api:       api,
		logger:    logger,
		config:    config,
	}
}

// Root returns the root supervisor for direct access if needed.
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}

// AddMessagingService adds a service to the messaging layer supervisor.
// Use this for the WebSocket hub and the dataset watcher.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds a service to the API layer supervisor.
// Use this for the HTTP server.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// Returns a channel that receives the error (or nil) when the supervisor stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns services that failed to stop within the
// configured shutdown timeout. Useful for debugging shutdown issues.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove removes a service from the tree by its token.
func (t *Tree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}
