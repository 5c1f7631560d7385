// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateData(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

// validateData validates dataset source configuration
func (c *Config) validateData() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Data.HourFile == "" {
		return fmt.Errorf("DATA_HOUR_FILE must not be empty")
	}
	if c.Data.DayFile == "" {
		return fmt.Errorf("DATA_DAY_FILE must not be empty")
	}
	if c.Data.ReloadDebounce <= 0 {
		return fmt.Errorf("DATA_RELOAD_DEBOUNCE must be positive, got %s", c.Data.ReloadDebounce)
	}
	return nil
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

// validateAPI validates pagination limits
func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

// validateSecurity validates rate limiting configuration
func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
	}
	return nil
}

// validateCache validates analytics cache configuration
func (c *Config) validateCache() error {
	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative, got %s", c.Cache.TTL)
	}
	return nil
}

// validateLogging validates log level and format
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
