// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package models

import "time"

// APIResponse is the JSON envelope returned by the /api/v1 endpoints.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"poller": {"state": "idle"}},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every API response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	Credentials  string `json:"credentials"`
	PollerState  string `json:"poller_state"`
	StoredSeries int    `json:"stored_series"`
}

// PollerStatus summarizes the poll scheduler.
type PollerStatus struct {
	State            string     `json:"state"`
	Interval         string     `json:"interval"`
	LastCycleAt      *time.Time `json:"last_cycle_at,omitempty"`
	LastSuccessAt    *time.Time `json:"last_success_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	Cycles           int64      `json:"cycles"`
	SkippedTicks     int64      `json:"skipped_ticks"`
	AuthFailures     int        `json:"consecutive_auth_failures"`
	Stopped          bool       `json:"stopped"`
	LastPublishCount int        `json:"last_published_samples"`
}

// CredentialStatus summarizes the credential manager without exposing tokens.
type CredentialStatus struct {
	Healthy   bool       `json:"healthy"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Refreshes int64      `json:"refreshes"`
	LastError string     `json:"last_error,omitempty"`
}

// SkippedRange is a backfill chunk that failed and was not retried.
type SkippedRange struct {
	Resource string    `json:"resource"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Reason   string    `json:"reason"`
}

// BackfillReport is the outcome of one historical backfill run.
type BackfillReport struct {
	RunID          string         `json:"run_id"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at,omitempty"`
	Running        bool           `json:"running"`
	ChunksTotal    int            `json:"chunks_total"`
	ChunksDone     int            `json:"chunks_done"`
	SamplesWritten int            `json:"samples_written"`
	Skipped        []SkippedRange `json:"skipped,omitempty"`
	Earliest       *time.Time     `json:"earliest_synced,omitempty"`
	Latest         *time.Time     `json:"latest_synced,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// StatusResponse is returned by /api/v1/status.
type StatusResponse struct {
	Version      string           `json:"version"`
	Healthy      bool             `json:"healthy"`
	Credentials  CredentialStatus `json:"credentials"`
	Poller       PollerStatus     `json:"poller"`
	StoredSeries int              `json:"stored_series"`
	StoreVersion uint64           `json:"store_version"`
	Backfill     *BackfillReport  `json:"last_backfill,omitempty"`
	Services     []ServiceStatus  `json:"services,omitempty"`
	Upstream     *UpstreamStatus  `json:"upstream,omitempty"`
}

// ServiceStatus describes one supervised service.
type ServiceStatus struct {
	Name          string     `json:"name"`
	Layer         string     `json:"layer"`
	Failures      int        `json:"failures"`
	Restarts      int        `json:"restarts"`
	LayerBackoff  bool       `json:"layer_backoff"`
	LastError     string     `json:"last_error,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// UpstreamStatus describes the Fitbit client.
type UpstreamStatus struct {
	CircuitBreaker string `json:"circuit_breaker"`
}

// BackfillRequest is the validated input of POST /api/v1/backfill.
type BackfillRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

// BackfillAccepted is returned when an on-demand backfill is started.
type BackfillAccepted struct {
	RunID string `json:"run_id"`
	Start string `json:"start"`
	End   string `json:"end"`
}
