// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package main is the entry point of fitbit-exporter.

fitbit-exporter polls the Fitbit Web API on a fixed interval and exposes the
latest health and activity values (steps, distance, floors, calories, active
minutes, resting heart rate, sleep, weight, device battery) as Prometheus
gauges. Historical data can be synchronized once at startup, on demand
through the HTTP API, or written to a Prometheus text file in dump mode.

# Application Architecture

	RootSupervisor ("fitbit-exporter")
	├── SyncSupervisor ("sync-layer")
	│   └── SyncService (poll scheduler, backfill runner)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (/metrics, /healthz, /livez, /api/v1)

Component initialization order:

 1. Flags: pflag, parsed before anything else
 2. Configuration: Koanf v2 (defaults, config file, environment, flags)
 3. Logging: zerolog, bridged to slog for the supervisor
 4. Credentials: OAuth2 refresh manager with optional Badger token store
 5. Upstream client: rate limited, retrying, circuit-broken Fitbit client
 6. Store and sync manager
 7. Exporter registry and HTTP router
 8. Supervisor tree, until SIGINT or SIGTERM

# Modes

Server mode (default) serves scrapes until signalled.

Dump mode (--dump-historical-metrics) runs one backfill over the requested
range and writes every sample, with its timestamp, to --output-file:

	fitbit-exporter -d -s 2024-01-01 -e 2024-12-31 -o history.prom

The file can be loaded with promtool tsdb create-blocks-from openmetrics or
served by a textfile collector.

# Configuration

Required environment variables:

	FITBIT_CLIENT_ID      OAuth2 client id of the registered Fitbit app
	FITBIT_CLIENT_SECRET  OAuth2 client secret
	FITBIT_REFRESH_TOKEN  refresh token issued for the user

See internal/config for the full list.

# Signal Handling

SIGINT and SIGTERM cancel the root context. In-flight Fitbit requests are
cancelled, the running poll cycle and backfill finish their current chunk,
and the HTTP server drains within server.shutdown_timeout.
*/
package main
