// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package api

import (
	"net/http"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// Status returns credential, poller, store and backfill state, plus the
// supervised services and the upstream circuit breaker when configured.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		Version:      h.version,
		Healthy:      h.sync.Healthy(),
		Credentials:  h.credentials.Status(),
		Poller:       h.sync.PollerStatus(),
		StoredSeries: h.store.Len(),
		StoreVersion: h.store.Version(),
	}
	if report, ok := h.sync.LastBackfill(); ok {
		resp.Backfill = &report
	}
	if h.services != nil {
		resp.Services = h.services.Services()
	}
	if h.upstream != nil {
		resp.Upstream = &models.UpstreamStatus{CircuitBreaker: h.upstream.BreakerState()}
	}
	respondSuccess(w, r, http.StatusOK, resp)
}
