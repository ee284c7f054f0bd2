// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter configures all HTTP routes. metrics serves the scrape endpoint;
// cfg may be nil for defaults.
func NewRouter(cfg *ChiMiddlewareConfig, h *Handler, metrics http.Handler) http.Handler {
	mw := NewChiMiddleware(cfg)
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	// ========================
	// Scrape and Health Endpoints
	// ========================
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/healthz", h.Healthz)
	r.Get("/livez", h.Livez)

	// ========================
	// API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.CORS())
		r.Use(APISecurityHeaders())

		r.Get("/status", h.Status)
		r.Get("/backfill", h.BackfillReport)
		r.With(mw.RateLimitBackfill()).Post("/backfill", h.StartBackfill)
	})

	return r
}
