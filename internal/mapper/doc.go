// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

// Package mapper turns raw Fitbit payloads into metric samples.
//
// Map is a pure function: it performs no I/O and holds no state, so the
// same payload and context always produce the same samples. This is what
// makes backfill re-runs idempotent.
//
// # Normalization
//
// Fitbit answers in the unit system selected by the Accept-Language header.
// Samples are always normalized:
//
//   - distances and elevation to meters
//   - body weight to kilograms
//   - exercise durations to seconds
//
// Samples describing a calendar day are observed at 00:00 of that day in
// the configured timezone. Device samples are observed at RecordContext.Now.
//
// # Errors
//
// A missing or null field omits the sample it would have produced. A field
// that is present but cannot be read as a number yields a MalformedField
// error alongside all other samples of the record. A payload whose overall
// shape is not the expected one, or an unknown kind, yields UnsupportedShape
// and no samples.
package mapper
