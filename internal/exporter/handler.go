// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package exporter

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
)

// NewRegistry returns a registry holding only the Fitbit collector.
func NewRegistry(c prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return reg
}

// NewHandler serves the gatherers in the text exposition format. Errors
// from one gatherer do not hide the metrics of the others.
func NewHandler(gatherers ...prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers(gatherers), promhttp.HandlerOpts{
		ErrorLog:      errorLog{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// errorLog adapts promhttp's logger to zerolog.
type errorLog struct{}

func (errorLog) Println(v ...interface{}) {
	logging.Error().Str("component", "promhttp").Msg(fmt.Sprint(v...))
}
