// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/mapper"
	"github.com/tomtom215/fitbit-exporter/internal/models"
	"github.com/tomtom215/fitbit-exporter/internal/store"
)

var pollNow = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

func newTestPoller(f *fakeFetcher, st SampleStore, kinds ...fitbit.Kind) *Poller {
	return NewPoller(PollerConfig{
		Interval:        time.Minute,
		Kinds:           kinds,
		Location:        time.UTC,
		UnitSystem:      mapper.UnitSystemMetric,
		MaxAuthFailures: 3,
		Clock:           fixedClock(pollNow),
	}, f, st)
}

func TestPoller_RunOncePublishesOneBatch(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{respond: okResponder}
	st := newCountingStore()
	p := newTestPoller(f, st, fitbit.KindSteps, fitbit.KindFloors, fitbit.KindActiveMinutes)

	n, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	// steps + floors + four intensities for one day.
	if n != 6 || st.Len() != 6 {
		t.Errorf("published %d samples, store has %d, want 6", n, st.Len())
	}
	if st.batches.Load() != 1 {
		t.Errorf("expected exactly one batch, got %d", st.batches.Load())
	}
	for _, req := range f.requests() {
		if !req.Start.Equal(date("2024-03-05")) || !req.End.Equal(date("2024-03-05")) {
			t.Errorf("request %s not for today: %v..%v", req.Label(), req.Start, req.End)
		}
	}
	if p.State() != StateIdle {
		t.Errorf("state = %s, want idle", p.State())
	}
	status := p.Status()
	if status.Cycles != 1 || status.LastSuccessAt == nil || status.LastPublishCount != 6 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestPoller_FetchFailureLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	seed := models.MetricSample{Name: mapper.MetricSteps, Labels: models.NewLabels("date", "2024-03-04"), Value: 42, ObservedAt: date("2024-03-04")}
	if err := st.Store.UpsertBatch([]models.MetricSample{seed}); err != nil {
		t.Fatal(err)
	}
	before := st.Snapshot()

	f := &fakeFetcher{respond: func(req fitbit.Request) (fitbit.RawRecord, error) {
		if req.Kind == fitbit.KindFloors {
			return nil, &fitbit.FetchError{Kind: fitbit.ServerError, StatusCode: 503}
		}
		return seriesPayload(req), nil
	}}
	p := newTestPoller(f, st, fitbit.KindSteps, fitbit.KindFloors)

	if _, err := p.RunOnce(context.Background()); !errors.Is(err, fitbit.ErrServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if st.batches.Load() != 0 {
		t.Error("failed cycle must not publish")
	}
	if !reflect.DeepEqual(before, st.Snapshot()) {
		t.Error("store changed after failed cycle")
	}
	if p.Stopped() || p.State() != StateIdle {
		t.Errorf("transient failure must not stop polling (state %s)", p.State())
	}
	if p.Status().LastError == "" {
		t.Error("expected last error in status")
	}
}

func TestPoller_RequestLocalErrorsSkipResource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"bad request", &fitbit.FetchError{Kind: fitbit.BadRequest, StatusCode: 400}},
		{"unauthorized after refresh", &fitbit.FetchError{Kind: fitbit.Unauthorized, StatusCode: 401}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{respond: func(req fitbit.Request) (fitbit.RawRecord, error) {
				if req.Kind == fitbit.KindSteps {
					return nil, tt.err
				}
				return seriesPayload(req), nil
			}}
			st := newCountingStore()
			p := newTestPoller(f, st, fitbit.KindSteps, fitbit.KindFloors)

			n, err := p.RunOnce(context.Background())
			if err != nil {
				t.Fatalf("RunOnce() error = %v", err)
			}
			if n != 1 {
				t.Errorf("expected only floors, got %d samples", n)
			}
			if _, ok := st.Get(models.MetricSample{Name: mapper.MetricFloors, Labels: models.NewLabels("date", "2024-03-05")}.Key()); !ok {
				t.Error("floors sample missing")
			}
		})
	}
}

func TestPoller_UnmappableRecordSkipped(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{respond: func(req fitbit.Request) (fitbit.RawRecord, error) {
		if req.Kind == fitbit.KindSteps {
			return fitbit.RawRecord(`{"unexpected":true}`), nil
		}
		return seriesPayload(req), nil
	}}
	st := newCountingStore()
	p := newTestPoller(f, st, fitbit.KindSteps, fitbit.KindFloors)

	n, err := p.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Errorf("expected floors to be published despite unmappable steps, got %d, %v", n, err)
	}
}

func TestPoller_RepeatedUnrecoverableStopsPolling(t *testing.T) {
	t.Parallel()

	dead := &auth.Error{Kind: auth.KindUnrecoverable, Reason: "invalid_grant"}
	f := &fakeFetcher{respond: func(fitbit.Request) (fitbit.RawRecord, error) { return nil, dead }}
	st := newCountingStore()
	p := newTestPoller(f, st, fitbit.KindSteps)

	for i := 1; i <= 2; i++ {
		if _, err := p.RunOnce(context.Background()); !auth.IsUnrecoverable(err) {
			t.Fatalf("cycle %d: expected unrecoverable error, got %v", i, err)
		}
		if p.Stopped() {
			t.Fatalf("stopped after %d failures, want 3", i)
		}
	}
	if _, err := p.RunOnce(context.Background()); !auth.IsUnrecoverable(err) {
		t.Fatalf("expected unrecoverable error, got %v", err)
	}
	if !p.Stopped() || p.Healthy() || p.State() != StateStopped {
		t.Errorf("expected halted poller, state %s", p.State())
	}
	if _, err := p.RunOnce(context.Background()); !errors.Is(err, ErrPollerStopped) {
		t.Errorf("expected ErrPollerStopped, got %v", err)
	}
	if got := len(f.requests()); got != 3 {
		t.Errorf("expected no fetch after halting, got %d requests", got)
	}
}

func TestPoller_SuccessResetsAuthFailures(t *testing.T) {
	t.Parallel()

	fail := true
	f := &fakeFetcher{respond: func(req fitbit.Request) (fitbit.RawRecord, error) {
		if fail {
			return nil, &auth.Error{Kind: auth.KindUnrecoverable}
		}
		return seriesPayload(req), nil
	}}
	p := newTestPoller(f, newCountingStore(), fitbit.KindSteps)

	_, _ = p.RunOnce(context.Background())
	_, _ = p.RunOnce(context.Background())
	fail = false
	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Status().AuthFailures != 0 {
		t.Errorf("auth failures = %d after success", p.Status().AuthFailures)
	}
}

func TestPoller_StoreInvariantStopsPolling(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	st.err = fmt.Errorf("%w: broken", store.ErrInvariant)
	p := newTestPoller(&fakeFetcher{respond: okResponder}, st, fitbit.KindSteps)

	if _, err := p.RunOnce(context.Background()); !errors.Is(err, store.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if !p.Stopped() {
		t.Error("store invariant violation must stop polling")
	}
}

func TestPoller_NoOverlappingCycles(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		respond: okResponder,
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	p := newTestPoller(f, newCountingStore(), fitbit.KindSteps)

	done := make(chan error, 1)
	go func() {
		_, err := p.RunOnce(context.Background())
		done <- err
	}()
	<-f.entered

	if p.State() != StateFetching {
		t.Errorf("state = %s, want fetching", p.State())
	}
	if p.trigger(context.Background()) {
		t.Error("tick during a cycle must be skipped")
	}
	if _, err := p.RunOnce(context.Background()); !errors.Is(err, ErrCycleInFlight) {
		t.Errorf("expected ErrCycleInFlight, got %v", err)
	}
	close(f.gate)

	if err := <-done; err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if got := p.Status().SkippedTicks; got != 1 {
		t.Errorf("skipped ticks = %d, want 1", got)
	}
	if got := len(f.requests()); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestPoller_StartRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{respond: okResponder}
	st := newCountingStore()
	p := NewPoller(PollerConfig{
		Interval: 20 * time.Millisecond,
		Kinds:    []fitbit.Kind{fitbit.KindSteps},
	}, f, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start must fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for p.Status().Cycles < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d cycles ran", p.Status().Cycles)
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	cycles := p.Status().Cycles
	time.Sleep(60 * time.Millisecond)
	if p.Status().Cycles != cycles {
		t.Error("cycles kept running after Stop")
	}
}

func TestPoller_NextTickOneIntervalAfterFailedCycleStart(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: pollNow}
	var calls atomic.Int32
	f := &fakeFetcher{respond: func(req fitbit.Request) (fitbit.RawRecord, error) {
		if calls.Add(1) == 1 {
			// The failing cycle takes 20s.
			clock.Advance(20 * time.Second)
			return nil, &fitbit.FetchError{Kind: fitbit.ServerError, StatusCode: 503}
		}
		return okResponder(req)
	}}
	st := newCountingStore()
	p := NewPoller(PollerConfig{
		Interval:        time.Minute,
		Kinds:           []fitbit.Kind{fitbit.KindSteps},
		Location:        time.UTC,
		MaxAuthFailures: 3,
		Clock:           clock.Now,
		NewTicker:       clock.NewTicker,
	}, f, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	waitFor(t, func() bool { return p.Status().LastError != "" && !p.inFlight.Load() })
	if clock.tickerCount() != 1 {
		t.Fatalf("expected one ticker, got %d", clock.tickerCount())
	}
	if st.batches.Load() != 0 || st.Len() != 0 {
		t.Errorf("failed cycle published %d batches", st.batches.Load())
	}

	clock.Advance(39 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := p.Status().Cycles; got != 1 {
		t.Fatalf("a cycle ran before the interval elapsed: %d cycles", got)
	}

	clock.Advance(time.Second)
	waitFor(t, func() bool { return p.Status().LastSuccessAt != nil })

	status := p.Status()
	if want := pollNow.Add(time.Minute); !status.LastSuccessAt.Equal(want) {
		t.Errorf("second cycle started at %s, want %s", status.LastSuccessAt, want)
	}
	if status.Cycles != 2 || status.SkippedTicks != 0 {
		t.Errorf("cycles = %d, skipped = %d, want 2 and 0", status.Cycles, status.SkippedTicks)
	}
}

func TestPoller_HaltEndsLoop(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{respond: func(fitbit.Request) (fitbit.RawRecord, error) {
		return nil, &auth.Error{Kind: auth.KindUnrecoverable}
	}}
	p := NewPoller(PollerConfig{
		Interval:        10 * time.Millisecond,
		Kinds:           []fitbit.Kind{fitbit.KindSteps},
		MaxAuthFailures: 2,
	}, f, newCountingStore())

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !p.Stopped() {
		if time.Now().After(deadline) {
			t.Fatal("poller did not halt")
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	requests := len(f.requests())
	time.Sleep(50 * time.Millisecond)
	if len(f.requests()) != requests {
		t.Error("fetches continued after halting")
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerStopped) {
		t.Errorf("restart after halt = %v, want ErrPollerStopped", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	want := map[State]string{
		StateIdle: "idle", StateFetching: "fetching", StateMapping: "mapping",
		StatePublishing: "publishing", StateStopped: "stopped", State(42): "unknown",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %s, want %s", s, s.String(), name)
		}
	}
}
