// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package metrics defines the exporter's own Prometheus metrics.

These describe the health of the exporter itself (upstream request outcomes,
token refreshes, poll cycles, backfill progress) and are exposed next to the
Fitbit series on the same /metrics endpoint. All names carry the
fitbit_exporter_ prefix so they never collide with the exported user data,
which uses fitbit_.

Metrics are registered with the default registry through promauto at package
initialization.

# Available Metrics

Upstream:
  - fitbit_exporter_upstream_requests_total{resource,outcome}
  - fitbit_exporter_upstream_request_duration_seconds{resource}
  - fitbit_exporter_upstream_retries_total{resource,reason}
  - fitbit_exporter_upstream_rate_limit_remaining

Credentials:
  - fitbit_exporter_token_refreshes_total{result}
  - fitbit_exporter_token_expiry_timestamp_seconds
  - fitbit_exporter_credentials_healthy

Polling and backfill:
  - fitbit_exporter_poll_cycles_total{result}
  - fitbit_exporter_poll_cycle_duration_seconds
  - fitbit_exporter_poll_skipped_ticks_total
  - fitbit_exporter_backfill_chunks_total{resource,result}

Circuit breaker:
  - fitbit_exporter_circuit_breaker_state{name}
  - fitbit_exporter_circuit_breaker_requests_total{name,result}
*/
package metrics
