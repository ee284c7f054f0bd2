// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/store"
)

func newTestManager(f *fakeFetcher, creds CredentialHealth, startup *DateRange) (*Manager, *countingStore) {
	st := newCountingStore()
	m := NewManager(ManagerConfig{
		Poller: PollerConfig{
			Interval:        time.Hour,
			Kinds:           []fitbit.Kind{fitbit.KindSteps},
			MaxAuthFailures: 1,
			Clock:           fixedClock(pollNow),
		},
		Backfill: BackfillConfig{
			Kinds:     []fitbit.Kind{fitbit.KindSteps},
			ChunkDays: 7,
			Clock:     fixedClock(pollNow),
		},
		StartupBackfill: startup,
	}, f, st, creds)
	return m, st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_StartStop(t *testing.T) {
	t.Parallel()

	m, st := newTestManager(&fakeFetcher{respond: okResponder}, nil,
		&DateRange{Start: date("2024-02-01"), End: date("2024-02-10")})

	if err := m.Stop(); err == nil {
		t.Error("Stop before Start must fail")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("second Start must fail")
	}

	// One sample for today from polling plus ten from the startup backfill.
	waitFor(t, func() bool {
		_, ok := m.Backfills().Report()
		return st.Len() == 11 && ok && !m.Backfills().Running()
	})
	if !m.Healthy() {
		t.Error("manager should be healthy")
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestManager_Healthy(t *testing.T) {
	t.Parallel()

	creds := &fakeCredentials{}
	creds.healthy.Store(true)
	m, _ := newTestManager(&fakeFetcher{respond: okResponder}, creds, nil)
	if !m.Healthy() {
		t.Error("expected healthy")
	}
	creds.healthy.Store(false)
	if m.Healthy() {
		t.Error("unusable credential must make the manager unhealthy")
	}
}

func TestManager_StartBackfillConflicts(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		respond: okResponder,
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	m, _ := newTestManager(f, nil, nil)

	runID, err := m.StartBackfill(date("2024-01-01"), date("2024-01-05"))
	if err != nil || runID == "" {
		t.Fatalf("StartBackfill() = %q, %v", runID, err)
	}
	<-f.entered
	if _, err := m.StartBackfill(date("2024-01-01"), date("2024-01-05")); !errors.Is(err, ErrBackfillRunning) {
		t.Errorf("expected ErrBackfillRunning, got %v", err)
	}
	close(f.gate)
	m.Backfills().Wait()

	if report, ok := m.Backfills().Report(); !ok || report.RunID != runID {
		t.Errorf("report = %+v", report)
	}
}

// staticTokens always hands out the same valid token.
type staticTokens struct{}

func (staticTokens) GetValidToken(context.Context) (auth.Token, error) {
	return auth.Token{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (staticTokens) ForceRefresh(context.Context, string) (auth.Token, error) {
	return auth.Token{AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestBackfillLeavesRequestBudgetForPolling(t *testing.T) {
	if testing.Short() {
		t.Skip("runs for several seconds")
	}
	t.Parallel()

	today := time.Now().UTC().Format(fitbit.DateLayout)
	var pollRequests, backfillRequests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /1/user/-/activities/{series}/date/{start}/{end}.json
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) != 9 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if parts[7] == today {
			pollRequests.Add(1)
		} else {
			backfillRequests.Add(1)
		}
		fmt.Fprintf(w, `{"activities-%s":[]}`, parts[5])
	}))
	defer srv.Close()

	// 10 requests per second in total, one of which backfills may use.
	client, err := fitbit.NewClient(fitbit.Config{
		BaseURL:         srv.URL,
		HTTPClient:      srv.Client(),
		RequestsPerHour: 36000,
		RequestBurst:    5,

		BackgroundRequestsPerHour: 3600,
	}, staticTokens{})
	if err != nil {
		t.Fatal(err)
	}

	st := store.New()
	// Five requests per cycle.
	p := NewPoller(PollerConfig{
		Interval:        time.Second,
		Kinds:           []fitbit.Kind{fitbit.KindSteps, fitbit.KindActiveMinutes},
		MaxAuthFailures: 1,
	}, client, st)
	b := NewBackfill(BackfillConfig{Kinds: []fitbit.Kind{fitbit.KindSteps}, ChunkDays: 1}, client, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backfillDone := make(chan struct{})
	go func() {
		defer close(backfillDone)
		_, _ = b.Run(ctx, date("2000-01-01"), date("2009-12-31"))
	}()
	waitFor(t, func() bool { return backfillRequests.Load() > 0 })

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3500 * time.Millisecond)
	p.Stop()
	cancel()
	<-backfillDone

	status := p.Status()
	if status.SkippedTicks != 0 {
		t.Errorf("skipped %d ticks while a backfill was running", status.SkippedTicks)
	}
	if status.Cycles < 3 || status.LastError != "" {
		t.Errorf("cycles = %d, last error = %q", status.Cycles, status.LastError)
	}
	if got := pollRequests.Load(); got < 15 {
		t.Errorf("poll requests = %d, want at least 15", got)
	}
	if got := backfillRequests.Load(); got > 7 {
		t.Errorf("backfill sent %d requests, more than its budget allows", got)
	}
}
