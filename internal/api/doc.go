// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package api provides the HTTP surface of the exporter.

Key Components:

  - NewRouter: chi route table and middleware stack
  - Handler: health, status and backfill handlers
  - ChiMiddleware: CORS and rate limiting from the chi ecosystem

Endpoints:

  - GET  /metrics: Prometheus exposition (Fitbit samples plus self metrics)
  - GET  /healthz: 200 while the credential is usable and polling runs, 503 otherwise
  - GET  /livez: 200 while the process serves HTTP
  - GET  /api/v1/status: poller, credential, store and last backfill summary
  - GET  /api/v1/backfill: the running or last backfill report
  - POST /api/v1/backfill?start=YYYY-MM-DD&end=YYYY-MM-DD: start an on-demand
    backfill (202), 409 while one is running, 429 when rate limited

Responses of /api/v1 and the health endpoints use the models.APIResponse
envelope. Scrapes never trigger upstream requests; they read the current
store snapshot.

Thread Safety:

Handlers hold no mutable state of their own and are safe for concurrent use.
*/
package api
