// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, environment variables and command-line flags.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//  4. Overrides: Values set by command-line flags
//
// Configuration Categories:
//
//  1. Upstream:
//     - Fitbit: OAuth2 application, credential, API endpoints and request budget
//
//  2. Synchronization:
//     - Sync: Poll interval, resources, timezone and retry policy
//     - Backfill: Historical range synchronized at startup
//
//  3. Surfaces:
//     - Server: HTTP listener, CORS and on-demand backfill rate limit
//     - Exporter: Exposition options
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Example:
//
//	cfg, err := config.LoadWithKoanf(nil)
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	srv := http.Server{Addr: cfg.Server.ListenAddress()}
//
// Thread Safety:
// Config is immutable after loading and safe for concurrent read access.
type Config struct {
	Fitbit   FitbitConfig   `koanf:"fitbit"`
	Sync     SyncConfig     `koanf:"sync"`
	Backfill BackfillConfig `koanf:"backfill"`
	Server   ServerConfig   `koanf:"server"`
	Exporter ExporterConfig `koanf:"exporter"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// FitbitConfig holds the Fitbit application credentials and client settings.
//
// Environment Variables:
//   - FITBIT_CLIENT_ID / FITBIT_CLIENT_SECRET: OAuth2 application (required)
//   - FITBIT_REFRESH_TOKEN: refresh token of the authorized user (required)
//   - FITBIT_ACCESS_TOKEN: optional initial access token
//   - FITBIT_API_URL: API base URL (default: https://api.fitbit.com)
//   - FITBIT_TOKEN_URL: token endpoint (default: https://api.fitbit.com/oauth2/token)
//   - FITBIT_UNIT_SYSTEM: metric, en_US or en_GB (default: metric)
//   - FITBIT_REQUEST_TIMEOUT: per-request timeout (default: 30s)
//   - FITBIT_REQUESTS_PER_HOUR: client-side request budget (default: 150)
//   - FITBIT_REQUEST_BURST: requests sent back to back (default: 15)
//   - FITBIT_BACKFILL_REQUESTS_PER_HOUR: share of the budget backfills may
//     use; the rest is kept for polling (default: 50, 0 = no reservation)
//   - FITBIT_TOKEN_REFRESH_MARGIN: refresh this long before expiry (default: 5m)
type FitbitConfig struct {
	ClientID           string           `koanf:"client_id" validate:"required"`
	ClientSecret       string           `koanf:"client_secret" validate:"required"`
	RefreshToken       string           `koanf:"refresh_token" validate:"required"`
	AccessToken        string           `koanf:"access_token"`
	APIURL             string           `koanf:"api_url" validate:"required,http_url"`
	TokenURL           string           `koanf:"token_url" validate:"required,http_url"`
	UnitSystem         string           `koanf:"unit_system" validate:"oneof=metric en_US en_GB"`
	RequestTimeout     time.Duration    `koanf:"request_timeout" validate:"gte=1s"`
	RequestsPerHour    int              `koanf:"requests_per_hour" validate:"gte=0"`
	RequestBurst       int              `koanf:"request_burst" validate:"gte=1"`
	BackfillRequests   int              `koanf:"backfill_requests_per_hour" validate:"gte=0"`
	TokenRefreshMargin time.Duration    `koanf:"token_refresh_margin" validate:"gte=0"`
	TokenStore         TokenStoreConfig `koanf:"token_store"`
}

// TokenStoreConfig controls persistence of rotated tokens. Fitbit refresh
// tokens are single use, so without a store a restart after the first
// refresh needs a freshly issued refresh token.
type TokenStoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
}

// SyncConfig holds the poll scheduler settings.
//
// Environment Variables:
//   - POLL_INTERVAL: time between poll cycles (default: 10m)
//   - SYNC_RESOURCES: comma-separated resource kinds
//   - SYNC_TIMEZONE: IANA zone that defines "today" (default: UTC)
//   - SYNC_RETRY_ATTEMPTS / SYNC_RETRY_DELAY / SYNC_RETRY_MAX_DELAY: retry policy
//   - SYNC_MAX_AUTH_FAILURES: failed cycles before polling stops (default: 3)
type SyncConfig struct {
	Interval        time.Duration `koanf:"interval" validate:"gte=1s"`
	Resources       []string      `koanf:"resources" validate:"min=1,dive,fitbit_resource"`
	Timezone        string        `koanf:"timezone" validate:"required,timezone"`
	RetryAttempts   int           `koanf:"retry_attempts" validate:"gte=1,lte=20"`
	RetryDelay      time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RetryMaxDelay   time.Duration `koanf:"retry_max_delay" validate:"gte=0"`
	MaxAuthFailures int           `koanf:"max_auth_failures" validate:"gte=1"`
}

// BackfillConfig holds the startup backfill settings.
//
// Environment Variables:
//   - BACKFILL_ENABLED: run a backfill at startup (default: false)
//   - BACKFILL_START_DATE / BACKFILL_END_DATE: explicit range (YYYY-MM-DD)
//   - BACKFILL_DAYS: range length when no start date is set (default: 365)
//   - BACKFILL_CHUNK_DAYS: days per window (default: 1095, so every
//     resource requests its own maximum range)
type BackfillConfig struct {
	Enabled   bool   `koanf:"enabled"`
	StartDate string `koanf:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `koanf:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Days      int    `koanf:"days" validate:"gte=1"`
	ChunkDays int    `koanf:"chunk_days" validate:"gte=1,lte=1095"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST / HTTP_PORT: listen address (default: 0.0.0.0:8080)
//   - HTTP_TIMEOUT: read and write timeout (default: 30s)
//   - HTTP_SHUTDOWN_TIMEOUT: graceful shutdown bound (default: 10s)
//   - CORS_ORIGINS: comma-separated origins allowed on /api/v1 (default: none)
//   - BACKFILL_RATE_LIMIT: on-demand backfill requests per minute (default: 5)
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	BackfillRateLimit int           `koanf:"backfill_rate_limit" validate:"gte=1"`
}

// ListenAddress returns host:port.
func (s ServerConfig) ListenAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ExporterConfig holds exposition settings.
//
// Environment Variables:
//   - EXPORTER_EXPOSE_TIMESTAMPS: attach the observation time to every
//     Fitbit sample on /metrics (default: false)
type ExporterConfig struct {
	ExposeTimestamps bool `koanf:"expose_timestamps"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Location loads the configured timezone.
func (s SyncConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Kinds returns the configured resources as kinds.
func (s SyncConfig) Kinds() ([]fitbit.Kind, error) {
	kinds := make([]fitbit.Kind, 0, len(s.Resources))
	seen := make(map[fitbit.Kind]bool, len(s.Resources))
	for _, r := range s.Resources {
		k, err := fitbit.ParseKind(r)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// RetryPolicy builds the upstream retry policy.
func (s SyncConfig) RetryPolicy() fitbit.RetryPolicy {
	p := fitbit.DefaultRetryPolicy()
	p.MaxAttempts = s.RetryAttempts
	p.BaseDelay = s.RetryDelay
	p.MaxDelay = s.RetryMaxDelay
	return p
}

// Range resolves the backfill range relative to now in loc. An empty end
// date means yesterday and an empty start date means Days days ending at
// the end date.
func (b BackfillConfig) Range(now time.Time, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	end = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	if b.EndDate != "" {
		if end, err = time.ParseInLocation(fitbit.DateLayout, b.EndDate, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("backfill end_date: %w", err)
		}
	}

	days := b.Days
	if days < 1 {
		days = 1
	}
	start = end.AddDate(0, 0, -(days - 1))
	if b.StartDate != "" {
		if start, err = time.ParseInLocation(fitbit.DateLayout, b.StartDate, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("backfill start_date: %w", err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backfill start %s is after end %s",
			start.Format(fitbit.DateLayout), end.Format(fitbit.DateLayout))
	}
	return start, end, nil
}
