// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fitbit-exporter/config.yaml",
	"/etc/fitbit-exporter/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultResources are polled when SYNC_RESOURCES is not set. Exercise
// listings are opt-in because every page costs a request.
var DefaultResources = []string{
	string(fitbit.KindSteps),
	string(fitbit.KindDistance),
	string(fitbit.KindFloors),
	string(fitbit.KindCalories),
	string(fitbit.KindActiveMinutes),
	string(fitbit.KindHeart),
	string(fitbit.KindSleep),
	string(fitbit.KindWeight),
	string(fitbit.KindDevices),
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Fitbit: FitbitConfig{
			APIURL:             fitbit.DefaultBaseURL,
			TokenURL:           auth.DefaultTokenURL,
			UnitSystem:         "metric",
			RequestTimeout:     30 * time.Second,
			RequestsPerHour:    150, // Fitbit allows 150 per user per hour
			RequestBurst:       15,
			BackfillRequests:   50,
			TokenRefreshMargin: 5 * time.Minute,
			TokenStore: TokenStoreConfig{
				Enabled: false,
				Path:    "/data/tokens",
			},
		},
		Sync: SyncConfig{
			Interval:        10 * time.Minute,
			Resources:       append([]string(nil), DefaultResources...),
			Timezone:        "UTC",
			RetryAttempts:   5,
			RetryDelay:      time.Second,
			RetryMaxDelay:   time.Minute,
			MaxAuthFailures: 3,
		},
		Backfill: BackfillConfig{
			Enabled:   false,
			Days:      365,
			ChunkDays: 1095,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{},
			BackfillRateLimit: 5,
		},
		Exporter: ExporterConfig{
			ExposeTimestamps: false,
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
//  4. Overrides: koanf paths set by command-line flags
//
// The result is validated before it is returned.
func LoadWithKoanf(overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Layer 4: Flags, in a stable order
	paths := make([]string, 0, len(overrides))
	for path := range overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := k.Set(path, overrides[path]); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", path, err)
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"sync.resources",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (defaults or YAML)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Fitbit application and credential
	"fitbit_client_id":            "fitbit.client_id",
	"fitbit_client_secret":        "fitbit.client_secret",
	"fitbit_refresh_token":        "fitbit.refresh_token",
	"fitbit_access_token":         "fitbit.access_token",
	"fitbit_api_url":              "fitbit.api_url",
	"fitbit_token_url":            "fitbit.token_url",
	"fitbit_unit_system":          "fitbit.unit_system",
	"fitbit_request_timeout":      "fitbit.request_timeout",
	"fitbit_requests_per_hour":    "fitbit.requests_per_hour",
	"fitbit_request_burst":        "fitbit.request_burst",
	"fitbit_token_refresh_margin": "fitbit.token_refresh_margin",
	"fitbit_token_store_enabled":  "fitbit.token_store.enabled",
	"fitbit_token_store_path":     "fitbit.token_store.path",

	// Request budget reserved for backfills
	"fitbit_backfill_requests_per_hour": "fitbit.backfill_requests_per_hour",

	// Poll scheduler
	"poll_interval":          "sync.interval",
	"sync_resources":         "sync.resources",
	"sync_timezone":          "sync.timezone",
	"sync_retry_attempts":    "sync.retry_attempts",
	"sync_retry_delay":       "sync.retry_delay",
	"sync_retry_max_delay":   "sync.retry_max_delay",
	"sync_max_auth_failures": "sync.max_auth_failures",

	// Backfill
	"backfill_enabled":    "backfill.enabled",
	"backfill_start_date": "backfill.start_date",
	"backfill_end_date":   "backfill.end_date",
	"backfill_days":       "backfill.days",
	"backfill_chunk_days": "backfill.chunk_days",

	// HTTP server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"backfill_rate_limit":   "server.backfill_rate_limit",

	// Exposition
	"exporter_expose_timestamps": "exporter.expose_timestamps",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - FITBIT_CLIENT_ID -> fitbit.client_id
//   - POLL_INTERVAL -> sync.interval
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
