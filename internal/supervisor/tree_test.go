// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeService counts starts and fails the first failCount runs.
type fakeService struct {
	name      string
	failCount int32
	starts    atomic.Int32
	stops     atomic.Int32
}

func (s *fakeService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failCount {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	s.stops.Add(1)
	return ctx.Err()
}

func (s *fakeService) String() string { return s.name }

var _ suture.Service = (*fakeService)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			Sync:            LayerPolicy{FailureThreshold: 2},
			API:             LayerPolicy{FailureBackoff: time.Second},
			ShutdownTimeout: 10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.root == nil || tree.sync == nil || tree.api == nil {
			t.Fatal("expected root and both layer supervisors")
		}
		def := DefaultTreeConfig()
		if tree.config.Sync.FailureThreshold != 2 || tree.config.Sync.FailureBackoff != def.Sync.FailureBackoff {
			t.Errorf("sync policy = %+v", tree.config.Sync)
		}
		if tree.config.API.FailureBackoff != time.Second || tree.config.API.FailureThreshold != def.API.FailureThreshold {
			t.Errorf("api policy = %+v", tree.config.API)
		}
	})

	t.Run("rejects negative policy values", func(t *testing.T) {
		for name, cfg := range map[string]TreeConfig{
			"sync threshold": {Sync: LayerPolicy{FailureThreshold: -1}},
			"api backoff":    {API: LayerPolicy{FailureBackoff: -time.Second}},
			"shutdown":       {ShutdownTimeout: -time.Second},
		} {
			if _, err := NewSupervisorTree(testLogger(), cfg); err == nil {
				t.Errorf("%s: expected error", name)
			}
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(nil, TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("expected defaults, got %+v", tree.config)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{
		Sync:            LayerPolicy{FailureBackoff: 100 * time.Millisecond},
		API:             LayerPolicy{FailureBackoff: 100 * time.Millisecond},
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	syncSvc := &fakeService{name: "sync"}
	apiSvc := &fakeService{name: "api"}
	tree.AddSyncService(syncSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return syncSvc.starts.Load() == 1 && apiSvc.starts.Load() == 1 })
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	if syncSvc.stops.Load() != 1 || apiSvc.stops.Load() != 1 {
		t.Errorf("services not stopped: sync=%d api=%d", syncSvc.stops.Load(), apiSvc.stops.Load())
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unexpected unstopped services: %v", report)
	}
}

func TestSupervisorTreeFailureIsolation(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		Sync:            LayerPolicy{FailureThreshold: 10, FailureBackoff: 10 * time.Millisecond},
		ShutdownTimeout: time.Second,
	})

	failing := &fakeService{name: "failing-sync", failCount: 2}
	stable := &fakeService{name: "http"}
	tree.AddSyncService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, func() bool { return failing.starts.Load() >= 3 })

	if stable.starts.Load() != 1 {
		t.Errorf("api service restarted %d times, want exactly one start", stable.starts.Load())
	}

	waitFor(t, func() bool {
		svcs := tree.Services()
		return len(svcs) == 2 && svcs[0].Restarts == 2
	})
	svcs := tree.Services()
	if svcs[0].Name != "failing-sync" || svcs[0].Layer != SyncLayer {
		t.Errorf("first service = %s/%s", svcs[0].Layer, svcs[0].Name)
	}
	if svcs[0].Failures != 2 || svcs[0].LastError != "simulated failure" || svcs[0].LastFailureAt == nil {
		t.Errorf("sync service status = %+v", svcs[0])
	}
	if svcs[1].Name != "http" || svcs[1].Layer != APILayer || svcs[1].Failures != 0 || svcs[1].LastFailureAt != nil {
		t.Errorf("api service status = %+v", svcs[1])
	}

	cancel()
	<-errCh
}

func TestEventRecorder(t *testing.T) {
	var forwarded int
	r := newEventRecorder(func(suture.Event) { forwarded++ })
	r.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	r.register(SyncLayer, "fitbit-sync")
	r.register(SyncLayer, "fitbit-sync")

	r.hook(suture.EventServiceTerminate{SupervisorName: SyncLayer, ServiceName: "fitbit-sync", Restarting: true, Err: errors.New("token store closed")})
	r.hook(suture.EventServicePanic{SupervisorName: SyncLayer, ServiceName: "fitbit-sync", Restarting: false, PanicMsg: "nil map"})
	r.hook(suture.EventServiceTerminate{SupervisorName: RootName, ServiceName: SyncLayer, Restarting: true})
	r.hook(suture.EventBackoff{SupervisorName: SyncLayer})

	svcs := r.snapshot()
	if len(svcs) != 1 {
		t.Fatalf("expected one registered service, got %d", len(svcs))
	}
	got := svcs[0]
	if got.Failures != 2 || got.Restarts != 1 {
		t.Errorf("failures=%d restarts=%d, want 2 and 1", got.Failures, got.Restarts)
	}
	if got.LastError != "panic: nil map" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if !got.LayerBackoff {
		t.Error("expected the sync layer to be backing off")
	}
	if got.LastFailureAt == nil || !got.LastFailureAt.Equal(r.now()) {
		t.Errorf("LastFailureAt = %v", got.LastFailureAt)
	}

	r.hook(suture.EventResume{SupervisorName: SyncLayer})
	if r.snapshot()[0].LayerBackoff {
		t.Error("expected backoff to clear on resume")
	}
	if forwarded != 5 {
		t.Errorf("forwarded %d events, want 5", forwarded)
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	config := DefaultTreeConfig()

	if config.API != (LayerPolicy{FailureThreshold: 5, FailureDecay: 30, FailureBackoff: 15 * time.Second}) {
		t.Errorf("unexpected api policy %+v", config.API)
	}
	if config.Sync.FailureThreshold >= config.API.FailureThreshold {
		t.Errorf("sync threshold %v should be below api threshold %v", config.Sync.FailureThreshold, config.API.FailureThreshold)
	}
	if config.Sync.FailureBackoff <= config.API.FailureBackoff {
		t.Errorf("sync backoff %v should exceed api backoff %v", config.Sync.FailureBackoff, config.API.FailureBackoff)
	}
	if config.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
	}
}
