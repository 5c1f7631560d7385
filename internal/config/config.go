// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

// Package config provides centralized configuration management for Velodash.
//
// Configuration is loaded in layers with Koanf v2:
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting (DATA_DIR, HTTP_PORT, ...)
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"time"
)

// Config holds all application configuration.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(cfg.Database)
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Database DatabaseConfig `koanf:"database"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8501)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DataConfig holds dataset source settings. The hour and day file names are
// resolved relative to Dir unless absolute.
//
// Environment Variables:
//   - DATA_DIR: Directory containing the CSV files (default: ./data)
//   - DATA_HOUR_FILE: Hourly rentals CSV (default: hour.csv)
//   - DATA_DAY_FILE: Daily rentals CSV (default: day.csv)
//   - DATA_WATCH: Watch the data dir and reload on change (default: false)
//   - DATA_RELOAD_DEBOUNCE: Quiet period before a watched reload fires (default: 2s)
type DataConfig struct {
	Dir            string        `koanf:"dir"`
	HourFile       string        `koanf:"hour_file"`
	DayFile        string        `koanf:"day_file"`
	Watch          bool          `koanf:"watch"`
	ReloadDebounce time.Duration `koanf:"reload_debounce"`
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/velodash.duckdb)
//   - DUCKDB_MAX_MEMORY: Memory limit (default: 2GB)
//   - DUCKDB_THREADS: Worker threads, 0 = runtime.NumCPU() (default: 0)
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// APIConfig holds API pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds CORS and rate limiting settings. Velodash has no
// authentication layer; the dataset is read-only and single-tenant.
//
// Environment Variables:
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS: Requests allowed per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Turn rate limiting off entirely (default: false)
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// CacheConfig holds analytics response cache settings.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, config file, and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
