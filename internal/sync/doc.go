// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package sync keeps the metric store filled from the Fitbit API.

Key Components:

  - Poller: fetches the current day of every configured resource on a fixed
    interval and publishes each cycle as one atomic store batch
  - Backfill: walks a historical date range oldest to newest in chunks,
    skipping and reporting chunks that cannot be fetched
  - BackfillRunner: allows one backfill at a time and keeps the last report
  - Manager: starts and stops both for the supervisor

Poll Cycle:

Each cycle moves through Idle -> Fetching -> Mapping -> Publishing -> Idle.
Cycles never overlap: a tick that arrives while a cycle is still running is
skipped and counted, not queued. A cycle that fails before publishing leaves
the store untouched.

Failure Policy:

  - Bad requests and unauthorized responses skip the affected resource
  - Other fetch failures abort the cycle; the next tick runs normally
  - Unrecoverable credential errors on MaxAuthFailures consecutive cycles
    stop polling and mark the poller unhealthy; the last snapshot keeps
    being served
  - A store invariant violation stops polling immediately

Thread Safety:

All exported methods are safe for concurrent use. Poll cycles and backfill
runs may overlap each other; the store serializes their batches.
*/
package sync
