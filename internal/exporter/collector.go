// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package exporter

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/mapper"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// Snapshotter is the read side of the metric store.
type Snapshotter interface {
	Snapshot() []models.MetricSample
}

// Collector exposes the store contents as gauges.
//
// It is an unchecked collector: the set of metric families depends on the
// data fetched so far, so Describe sends nothing.
type Collector struct {
	source     Snapshotter
	timestamps bool
}

// NewCollector creates a collector over source. When timestamps is true
// every sample carries its ObservedAt time.
func NewCollector(source Snapshotter, timestamps bool) *Collector {
	return &Collector{source: source, timestamps: timestamps}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	descs := make(map[string]*prometheus.Desc)

	for _, s := range c.source.Snapshot() {
		names := s.Labels.Names()
		descKey := s.Name + "\xff" + strings.Join(names, "\xff")
		desc, ok := descs[descKey]
		if !ok {
			desc = prometheus.NewDesc(s.Name, mapper.Help(s.Name), names, nil)
			descs[descKey] = desc
		}

		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, s.Value, s.Labels.Values()...)
		if err != nil {
			logging.Warn().Err(err).Str("series", string(s.Key())).Msg("Dropping unexportable sample")
			continue
		}
		if c.timestamps && !s.ObservedAt.IsZero() {
			m = prometheus.NewMetricWithTimestamp(s.ObservedAt, m)
		}
		ch <- m
	}
}
