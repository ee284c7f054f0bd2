// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package services provides suture.Service wrappers for exporter components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

Sync Service (SyncService):
  - Wraps sync.Manager (Start/Stop lifecycle)
  - Start failures are returned so the supervisor restarts with backoff
  - On cancellation the manager is stopped, which waits for the running
    poll cycle and backfill to finish

HTTP Server (HTTPServerService):
  - Wraps *http.Server
  - Graceful shutdown bounded by a timeout so in-flight scrapes can finish
  - http.ErrServerClosed is treated as a normal stop
*/
package services
