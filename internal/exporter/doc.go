// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package exporter renders the metric store in the Prometheus exposition
format.

Key Components:

  - Collector: a prometheus.Collector that turns one store snapshot into
    constant gauges per scrape
  - NewHandler: the /metrics handler combining the Fitbit collector with the
    exporter's own metrics
  - WriteFile / WriteText: the text format writer behind dump mode

A scrape never triggers upstream requests. It reads exactly one snapshot,
so every series in a response belongs to the same store generation.

Thread Safety:

Collectors are stateless apart from configuration and may be scraped
concurrently.
*/
package exporter
