// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package models defines the data structures shared between the exporter's
components.

Key Components:

  - MetricSample: one observation of one series, produced by the mapper and
    held by the metric store until the next scrape
  - Labels: an ordered set of label pairs that, together with the metric
    name, identifies a series
  - APIResponse: JSON envelope used by the status and backfill endpoints

A series is identified by its name and label set. Two samples with the same
SeriesKey describe the same series; the store keeps only the most recent one.
*/
package models
