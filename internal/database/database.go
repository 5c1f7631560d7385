// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package database wraps the embedded DuckDB store. It owns the schema,
// the CSV ingest pipeline, and every analytics aggregation query.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/logging"
)

// DB wraps the DuckDB connection and provides data access methods
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Prepared statement caching
	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex

	// dataVersion increments on every successful dataset load. It keys the
	// analytics cache and lets clients detect stale chart data.
	dataVersion   int64
	dataVersionMu sync.RWMutex
}

// New creates a new database connection and initializes the schema
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// preserve_insertion_order=false reduces memory usage but may change result order
	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network environments
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory, preserveOrder)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates the schema and flushes the WAL
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}

	// Checkpoint after schema creation so a crash before the first ingest
	// does not leave schema statements in the WAL.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// Close closes the database connection and all prepared statements.
// It performs a CHECKPOINT before closing to flush the WAL to the main
// database file.
func (db *DB) Close() error {
	db.stmtCacheMu.Lock()
	for _, stmt := range db.stmtCache {
		if stmt != nil {
			closeWithLog(stmt, "prepared statement")
		}
	}
	db.stmtCache = make(map[string]*sql.Stmt)
	db.stmtCacheMu.Unlock()

	if db.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Checkpoint(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()

		return db.conn.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// ensureContext creates a context with 30-second timeout if none provided
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// DataVersion returns the current dataset version. Version 0 means no
// dataset has been loaded since the process started.
func (db *DB) DataVersion() int64 {
	db.dataVersionMu.RLock()
	defer db.dataVersionMu.RUnlock()
	return db.dataVersion
}

// bumpDataVersion increments the dataset version after a successful load
func (db *DB) bumpDataVersion() int64 {
	db.dataVersionMu.Lock()
	defer db.dataVersionMu.Unlock()
	db.dataVersion++
	return db.dataVersion
}

// getStmt returns a cached prepared statement, preparing it on first use
func (db *DB) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtCacheMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	db.stmtCacheMu.Lock()
	defer db.stmtCacheMu.Unlock()
	if stmt, ok := db.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	db.stmtCache[query] = stmt
	return stmt, nil
}

// clearStatementCache closes all cached prepared statements. Called after a
// dataset reload so statements do not reference replaced tables.
func (db *DB) clearStatementCache() {
	db.stmtCacheMu.Lock()
	for _, stmt := range db.stmtCache {
		if stmt != nil {
			closeWithLog(stmt, "prepared statement")
		}
	}
	db.stmtCache = make(map[string]*sql.Stmt)
	db.stmtCacheMu.Unlock()
}
