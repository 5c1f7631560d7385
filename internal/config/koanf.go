// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/velodash/config.yaml",
	"/etc/velodash/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8501,
			Timeout: 30 * time.Second,
		},
		Data: DataConfig{
			Dir:            "./data",
			HourFile:       "hour.csv",
			DayFile:        "day.csv",
			Watch:          false,
			ReloadDebounce: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                   "/data/velodash.duckdb",
			MaxMemory:              "2GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence: ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// DATA_DIR -> data.dir
	// HTTP_PORT -> server.port
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DATA_DIR -> data.dir
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",

		// Data source mappings
		"data_dir":             "data.dir",
		"data_hour_file":       "data.hour_file",
		"data_day_file":        "data.day_file",
		"data_watch":           "data.watch",
		"data_reload_debounce": "data.reload_debounce",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security mappings
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Cache mappings
		"cache_ttl": "cache.ttl",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
