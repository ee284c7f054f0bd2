// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

type serviceRecord struct {
	name        string
	layer       string
	failures    int
	restarts    int
	lastErr     string
	lastFailure time.Time
}

// eventRecorder keeps per-service failure history from suture events and
// forwards every event to the logging hook.
type eventRecorder struct {
	next suture.EventHook
	now  func() time.Time

	mu       sync.Mutex
	services []*serviceRecord
	backoff  map[string]bool
}

func newEventRecorder(next suture.EventHook) *eventRecorder {
	return &eventRecorder{
		next:    next,
		now:     time.Now,
		backoff: make(map[string]bool),
	}
}

func (r *eventRecorder) register(layer, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(layer, name) == nil {
		r.services = append(r.services, &serviceRecord{name: name, layer: layer})
	}
}

// find must be called with r.mu held.
func (r *eventRecorder) find(layer, name string) *serviceRecord {
	for _, rec := range r.services {
		if rec.layer == layer && rec.name == name {
			return rec
		}
	}
	return nil
}

func (r *eventRecorder) hook(e suture.Event) {
	switch ev := e.(type) {
	case suture.EventServiceTerminate:
		msg := "service returned"
		if ev.Err != nil {
			msg = fmt.Sprint(ev.Err)
		}
		r.failed(ev.SupervisorName, ev.ServiceName, ev.Restarting, msg)
	case suture.EventServicePanic:
		r.failed(ev.SupervisorName, ev.ServiceName, ev.Restarting, "panic: "+ev.PanicMsg)
	case suture.EventBackoff:
		r.setBackoff(ev.SupervisorName, true)
	case suture.EventResume:
		r.setBackoff(ev.SupervisorName, false)
	}
	if r.next != nil {
		r.next(e)
	}
}

func (r *eventRecorder) failed(layer, name string, restarting bool, msg string) {
	metrics.RecordServiceFailure(layer, name, restarting)

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.find(layer, name)
	if rec == nil {
		// A layer supervisor reported by the root.
		return
	}
	rec.failures++
	if restarting {
		rec.restarts++
	}
	rec.lastErr = msg
	rec.lastFailure = r.now()
}

func (r *eventRecorder) setBackoff(layer string, on bool) {
	metrics.SetLayerBackoff(layer, on)

	r.mu.Lock()
	r.backoff[layer] = on
	r.mu.Unlock()
}

func (r *eventRecorder) snapshot() []models.ServiceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ServiceStatus, 0, len(r.services))
	for _, rec := range r.services {
		st := models.ServiceStatus{
			Name:         rec.name,
			Layer:        rec.layer,
			Failures:     rec.failures,
			Restarts:     rec.restarts,
			LayerBackoff: r.backoff[rec.layer],
			LastError:    rec.lastErr,
		}
		if !rec.lastFailure.IsZero() {
			at := rec.lastFailure
			st.LastFailureAt = &at
		}
		out = append(out, st)
	}
	return out
}
