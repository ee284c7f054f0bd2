// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpstreamRequest(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("steps", "ok"))

	RecordUpstreamRequest("steps", "ok", 120*time.Millisecond)

	after := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("steps", "ok"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestRecordRateLimitRemaining(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   float64
	}{
		{"numeric", "148", 148},
		{"empty keeps previous", "", 148},
		{"garbage keeps previous", "lots", 148},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRateLimitRemaining(tt.header)
			if got := testutil.ToFloat64(UpstreamRateLimitRemaining); got != tt.want {
				t.Errorf("gauge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordTokenRefresh(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	RecordTokenRefresh("success", expiry)
	if got := testutil.ToFloat64(TokenExpiry); got != float64(expiry.Unix()) {
		t.Errorf("expiry gauge = %v, want %v", got, expiry.Unix())
	}

	RecordTokenRefresh("transient", time.Time{})
	if got := testutil.ToFloat64(TokenExpiry); got != float64(expiry.Unix()) {
		t.Error("failed refresh must not move the expiry gauge")
	}
}

func TestSetCredentialsHealthy(t *testing.T) {
	SetCredentialsHealthy(true)
	if testutil.ToFloat64(CredentialsHealthy) != 1 {
		t.Error("expected 1 when healthy")
	}
	SetCredentialsHealthy(false)
	if testutil.ToFloat64(CredentialsHealthy) != 0 {
		t.Error("expected 0 when unhealthy")
	}
}

func TestRecordBackfillChunk(t *testing.T) {
	okBefore := testutil.ToFloat64(BackfillChunks.WithLabelValues("sleep", "ok"))
	skippedBefore := testutil.ToFloat64(BackfillChunks.WithLabelValues("sleep", "skipped"))
	samplesBefore := testutil.ToFloat64(BackfillSamples)

	RecordBackfillChunk("sleep", false, 12)
	RecordBackfillChunk("sleep", true, 0)

	if got := testutil.ToFloat64(BackfillChunks.WithLabelValues("sleep", "ok")); got != okBefore+1 {
		t.Errorf("ok chunks = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(BackfillChunks.WithLabelValues("sleep", "skipped")); got != skippedBefore+1 {
		t.Errorf("skipped chunks = %v, want %v", got, skippedBefore+1)
	}
	if got := testutil.ToFloat64(BackfillSamples); got != samplesBefore+12 {
		t.Errorf("samples = %v, want %v", got, samplesBefore+12)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics", "200"))
	RecordAPIRequest("GET", "/metrics", 200, 3*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics", "200")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestRecordServiceFailure(t *testing.T) {
	c := ServiceFailures.WithLabelValues("sync-layer", "fitbit-sync", "true")
	before := testutil.ToFloat64(c)

	RecordServiceFailure("sync-layer", "fitbit-sync", true)

	if after := testutil.ToFloat64(c); after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestSetLayerBackoff(t *testing.T) {
	SetLayerBackoff("api-layer", true)
	if testutil.ToFloat64(LayerBackoff.WithLabelValues("api-layer")) != 1 {
		t.Error("expected 1 while backing off")
	}
	SetLayerBackoff("api-layer", false)
	if testutil.ToFloat64(LayerBackoff.WithLabelValues("api-layer")) != 0 {
		t.Error("expected 0 after resume")
	}
}
