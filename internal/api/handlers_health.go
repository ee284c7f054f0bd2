// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package api

import (
	"net/http"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// Healthz reports readiness. It answers 503 once the credential is unusable
// or polling has stopped after repeated unrecoverable errors.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	credentials := "ok"
	if !h.credentials.Healthy() {
		credentials = "failed"
	}

	resp := models.HealthResponse{
		Status:       "healthy",
		Credentials:  credentials,
		PollerState:  h.sync.PollerStatus().State,
		StoredSeries: h.store.Len(),
	}

	status := http.StatusOK
	if !h.sync.Healthy() {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, status, resp)
}

// Livez reports that the process is serving HTTP.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
