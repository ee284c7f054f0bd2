// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitbit_exporter"

var (
	// Upstream API Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of Fitbit API requests by outcome",
		},
		[]string{"resource", "outcome"}, // ok, rate_limited, server_error, bad_request, unauthorized
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of Fitbit API requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"resource"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Total number of retried Fitbit API attempts",
		},
		[]string{"resource", "reason"},
	)

	UpstreamRateLimitRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limit_remaining",
			Help:      "Requests left in the current Fitbit rate limit window as reported by the API",
		},
	)

	// Credential Metrics
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Total number of OAuth2 token refresh attempts by result",
		},
		[]string{"result"}, // success, transient, unrecoverable
	)

	TokenExpiry = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_expiry_timestamp_seconds",
			Help:      "Unix timestamp at which the current access token expires",
		},
	)

	CredentialsHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "credentials_healthy",
			Help:      "1 while the refresh token is usable, 0 once it has been rejected",
		},
	)

	// Poll Scheduler Metrics
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of poll cycles by result",
		},
		[]string{"result"}, // success, failed, auth_failed
	)

	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	PollSkippedTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_skipped_ticks_total",
			Help:      "Ticks skipped because the previous poll cycle was still running",
		},
	)

	PollLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successfully published poll cycle",
		},
	)

	PollerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poller_running",
			Help:      "1 while scheduled polling is active, 0 after it stopped",
		},
	)

	// Mapping Metrics
	MappingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_errors_total",
			Help:      "Records or fields skipped while mapping upstream payloads",
		},
		[]string{"resource", "kind"}, // unsupported_shape, malformed_field
	)

	// Store Metrics
	StoreSeries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_series",
			Help:      "Number of series currently held in the metric store",
		},
	)

	// Backfill Metrics
	BackfillChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_chunks_total",
			Help:      "Backfill chunks processed by result",
		},
		[]string{"resource", "result"}, // ok, skipped
	)

	BackfillSamples = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_samples_written_total",
			Help:      "Samples merged into the store by backfill runs",
		},
	)

	BackfillRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backfill_running",
			Help:      "1 while a backfill run is in progress",
		},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Supervision Metrics
	ServiceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_failures_total",
			Help:      "Supervised service terminations and panics",
		},
		[]string{"layer", "service", "restarting"},
	)

	LayerBackoff = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "supervisor_layer_backoff",
			Help:      "Whether a supervisor layer is backing off after repeated failures (0/1)",
		},
		[]string{"layer"},
	)
)

// RecordUpstreamRequest records the outcome and latency of one API attempt.
func RecordUpstreamRequest(resource, outcome string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(resource, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordRateLimitRemaining records the Fitbit-Rate-Limit-Remaining header.
// Unparseable values are ignored.
func RecordRateLimitRemaining(header string) {
	if header == "" {
		return
	}
	if n, err := strconv.ParseFloat(header, 64); err == nil {
		UpstreamRateLimitRemaining.Set(n)
	}
}

// RecordTokenRefresh records a refresh attempt and, on success, the new expiry.
func RecordTokenRefresh(result string, expiresAt time.Time) {
	TokenRefreshes.WithLabelValues(result).Inc()
	if result == "success" && !expiresAt.IsZero() {
		TokenExpiry.Set(float64(expiresAt.Unix()))
	}
}

// SetCredentialsHealthy mirrors the credential manager's health.
func SetCredentialsHealthy(healthy bool) {
	CredentialsHealthy.Set(boolToFloat(healthy))
}

// RecordPollCycle records a finished poll cycle.
func RecordPollCycle(result string, duration time.Duration) {
	PollCycles.WithLabelValues(result).Inc()
	PollCycleDuration.Observe(duration.Seconds())
	if result == "success" {
		PollLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordMappingError counts a skipped record or field.
func RecordMappingError(resource, kind string) {
	MappingErrors.WithLabelValues(resource, kind).Inc()
}

// RecordBackfillChunk records a processed backfill chunk.
func RecordBackfillChunk(resource string, skipped bool, samples int) {
	result := "ok"
	if skipped {
		result = "skipped"
	}
	BackfillChunks.WithLabelValues(resource, result).Inc()
	BackfillSamples.Add(float64(samples))
}

// RecordAPIRequest records a served HTTP request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordServiceFailure counts a supervised service that terminated or
// panicked.
func RecordServiceFailure(layer, service string, restarting bool) {
	ServiceFailures.WithLabelValues(layer, service, strconv.FormatBool(restarting)).Inc()
}

// SetLayerBackoff records whether a supervisor layer is backing off.
func SetLayerBackoff(layer string, backingOff bool) {
	LayerBackoff.WithLabelValues(layer).Set(boolToFloat(backingOff))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
