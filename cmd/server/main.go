// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package main is the entry point for the Velodash server application.
//
// Velodash is a self-hosted analytics dashboard for the UCI bike sharing
// dataset. It ingests the hourly and daily rental CSVs into DuckDB, merges
// and cleans them, and serves aggregate charts, a browsable rentals table,
// and CSV exports over a REST API with WebSocket reload notifications.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Initialize DuckDB for the analytical queries
//  3. Dataset Manager: Load hour.csv/day.csv and run the merge pipeline
//  4. WebSocket Hub: Enable real-time reload notifications to connected clients
//  5. File Watcher (optional): Reload automatically when the CSVs change
//  6. HTTP Server: REST API plus the embedded dashboard frontend
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Key variables:
//   - HTTP_PORT: Listen port (default: 8501)
//   - DATA_DIR: Directory containing hour.csv and day.csv (default: ./data)
//   - DATA_WATCH: Reload when the CSV files change (default: false)
//   - DUCKDB_PATH: Database file path, ":memory:" for ephemeral (default: /data/velodash.duckdb)
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes WebSocket clients and the database connection
//
// # Example Usage
//
//	export DATA_DIR=./data
//	export DATA_WATCH=true
//	./velodash
//
// Docker:
//
//	docker run -d \
//	  -v ./data:/data/csv \
//	  -e DATA_DIR=/data/csv \
//	  -p 8501:8501 \
//	  ghcr.io/velodash/velodash
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velodash/velodash/internal/api"
	"github.com/velodash/velodash/internal/cache"
	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/database"
	"github.com/velodash/velodash/internal/dataset"
	"github.com/velodash/velodash/internal/logging"
	"github.com/velodash/velodash/internal/supervisor"
	"github.com/velodash/velodash/internal/supervisor/services"
	ws "github.com/velodash/velodash/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("data_dir", cfg.Data.Dir).
		Str("db_path", cfg.Database.Path).
		Bool("watch", cfg.Data.Watch).
		Msg("Starting Velodash")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket hub must exist before the manager so reloads can broadcast
	wsHub := ws.NewHub()

	queryCache := cache.New(cfg.Cache.TTL)
	manager := dataset.NewManager(db, queryCache, wsHub, cfg.Data)

	// Initial dataset load. A missing or malformed CSV is not fatal: the
	// server comes up degraded and readiness stays 503 until a reload
	// succeeds, either via the watcher or POST /api/v1/dataset/reload.
	if record, err := manager.Reload(ctx); err != nil {
		logging.Warn().
			Err(err).
			Str("hour_file", manager.HourPath()).
			Str("day_file", manager.DayPath()).
			Msg("Initial dataset load failed, serving degraded until a reload succeeds")
	} else {
		logging.Info().
			Int64("hourly_rows", record.HourlyRows).
			Int64("daily_rows", record.DailyRows).
			Int64("merged_rows", record.MergedRows).
			Int64("duration_ms", record.DurationMS).
			Msg("Dataset loaded")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	handler := api.NewHandler(db, manager, cfg, wsHub, queryCache)
	router := api.NewRouter(handler, api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervisor tree: messaging layer (hub, watcher) under one child
	// supervisor, the HTTP server under another
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if cfg.Data.Watch {
		tree.AddMessagingService(dataset.NewWatcher(manager, cfg.Data))
		logging.Info().
			Str("dir", cfg.Data.Dir).
			Dur("debounce", cfg.Data.ReloadDebounce).
			Msg("Dataset watcher added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
