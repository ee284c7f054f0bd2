// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

// Package logging provides the process-wide zerolog logger for the exporter.
//
// All components log through the helpers in this package so that output
// format, level and field names are configured in exactly one place.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Version: version})
//
//	logging.Info().Str("resource", "steps").Msg("Fetched resource")
//	logging.Err(err).Msg("Poll cycle failed")
//
// # Correlation
//
// Each poll cycle and each backfill run carries a correlation id in its
// context. Use Ctx to obtain a logger that includes it:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Cycle started")
//
// # Supervisor Integration
//
// NewSlogHandler adapts the zerolog logger to log/slog, which is what
// sutureslog expects for supervisor event reporting.
//
// # Secrets
//
// Access and refresh tokens are never logged. The credential manager logs
// expiry times and refresh counts only.
package logging
