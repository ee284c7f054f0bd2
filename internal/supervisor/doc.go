// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package supervisor provides process supervision for the exporter using suture v4.

# Overview

Long-running components are organized into two layers:

	RootSupervisor ("fitbit-exporter")
	├── SyncSupervisor ("sync-layer")
	│   └── SyncService (poll scheduler and backfill runner)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A sync manager that fails to start is restarted with suture's backoff while
the HTTP server keeps answering scrapes and health checks.

# Restart Policies

Each layer has its own LayerPolicy. A sync restart starts with an immediate
poll cycle, so the sync layer enters backoff after fewer failures and waits
a minute before trying again. The API layer uses suture's defaults. An
address that is already in use fails the HTTP service at bind time and is
retried under the API policy.

# Service Reporting

The tree records every termination, panic and layer backoff it sees.
Services returns that history, which /api/v1/status publishes under
"services", and the same events feed the
fitbit_exporter_service_failures_total and
fitbit_exporter_supervisor_layer_backoff metrics.

Polling that stopped after repeated unrecoverable errors is not a crash:
the sync service keeps running, and /healthz reports the process as
unhealthy so an outer orchestrator can act on it.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	server.Handler = app.handler(tree)
	tree.AddSyncService(services.NewSyncService(syncManager))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Logging

Supervisor events are recorded first and then logged through the
sutureslog adapter, which writes to the slog bridge of the logging package.

# See Also

  - internal/supervisor/services: suture.Service wrappers
  - github.com/thejerf/suture/v4: supervision library
*/
package supervisor
