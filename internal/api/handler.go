// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package api

import (
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// CredentialReporter is the part of the credential manager the API reads.
type CredentialReporter interface {
	Healthy() bool
	Status() models.CredentialStatus
}

// SyncController is the part of the sync manager the API drives.
type SyncController interface {
	Healthy() bool
	PollerStatus() models.PollerStatus
	LastBackfill() (models.BackfillReport, bool)
	StartBackfill(start, end time.Time) (string, error)
}

// StoreReporter exposes metric store statistics.
type StoreReporter interface {
	Len() int
	Version() uint64
}

// ServiceReporter reports supervised services. Implemented by
// *supervisor.SupervisorTree.
type ServiceReporter interface {
	Services() []models.ServiceStatus
}

// UpstreamReporter reports the Fitbit client's circuit breaker.
type UpstreamReporter interface {
	BreakerState() string
}

// Handler serves the health, status and backfill endpoints.
type Handler struct {
	version     string
	loc         *time.Location
	credentials CredentialReporter
	sync        SyncController
	store       StoreReporter

	services        ServiceReporter
	upstream        UpstreamReporter
	maxBackfillDays int
	now             func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxBackfillDays bounds the number of days an on-demand backfill may
// cover. Zero or negative means unbounded.
func WithMaxBackfillDays(days int) HandlerOption {
	return func(h *Handler) {
		h.maxBackfillDays = days
	}
}

// WithServices adds supervised service state to the status response.
func WithServices(services ServiceReporter) HandlerOption {
	return func(h *Handler) {
		h.services = services
	}
}

// WithUpstream adds the Fitbit client state to the status response.
func WithUpstream(upstream UpstreamReporter) HandlerOption {
	return func(h *Handler) {
		h.upstream = upstream
	}
}

// WithClock overrides time.Now, which decides what today is.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates the API handler. loc is the zone backfill dates are
// interpreted in.
func NewHandler(version string, loc *time.Location, credentials CredentialReporter, sync SyncController, store StoreReporter, opts ...HandlerOption) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	h := &Handler{
		version:     version,
		loc:         loc,
		credentials: credentials,
		sync:        sync,
		store:       store,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
