// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package config provides centralized configuration management for the Fitbit
exporter.

# Configuration Sources

Configuration is layered with Koanf v2, later sources overriding earlier ones:
  - Built-in defaults
  - An optional YAML file (CONFIG_PATH, ./config.yaml, /etc/fitbit-exporter/config.yaml)
  - Environment variables, through an explicit mapping table
  - Command-line flag overrides passed to LoadWithKoanf

# Configuration Structure

  - FitbitConfig: OAuth2 application, credential, endpoints and request budget
  - SyncConfig: poll interval, resources, timezone and retry policy
  - BackfillConfig: startup backfill range and chunk size
  - ServerConfig: HTTP listener, CORS origins, backfill rate limit
  - ExporterConfig: exposition options
  - LoggingConfig: zerolog level, format and caller info

# Example YAML

	fitbit:
	  client_id: "23ABCD"
	  client_secret: "..."
	  refresh_token: "..."
	  unit_system: metric
	  backfill_requests_per_hour: 40
	sync:
	  interval: 5m
	  resources: [steps, heart, sleep, weight, devices]
	  timezone: Europe/Berlin
	backfill:
	  enabled: true
	  days: 90
	server:
	  port: 9877

# Validation

Field rules are struct tags checked by internal/validation
(go-playground/validator). Cross-field rules (retry delays, explicit backfill
range, base URL shape) are checked by Validate.

Secrets (client secret, refresh and access tokens) are never logged.
*/
package config
