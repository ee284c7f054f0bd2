// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// Layer names, as reported in logs, metrics and /api/v1/status.
const (
	RootName  = "fitbit-exporter"
	SyncLayer = "sync-layer"
	APILayer  = "api-layer"
)

// LayerPolicy is the restart policy of one supervisor layer.
type LayerPolicy struct {
	// FailureThreshold is the number of failures before the layer backs off.
	FailureThreshold float64

	// FailureDecay is the half-life of the failure count, in seconds.
	FailureDecay float64

	// FailureBackoff is how long the layer waits once the threshold is
	// exceeded.
	FailureBackoff time.Duration
}

// TreeConfig holds supervisor tree configuration. Zero fields take the
// values of DefaultTreeConfig.
type TreeConfig struct {
	Sync LayerPolicy
	API  LayerPolicy

	// ShutdownTimeout bounds how long each layer waits for a service to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the restart policies used by the server.
//
// Every sync restart starts with an immediate poll cycle and spends Fitbit
// requests, so the sync layer gives up sooner and waits longer than the
// API layer.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Sync: LayerPolicy{
			FailureThreshold: 3,
			FailureDecay:     300,
			FailureBackoff:   time.Minute,
		},
		API: LayerPolicy{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

func (p LayerPolicy) validate(layer string) error {
	if p.FailureThreshold < 0 || p.FailureDecay < 0 || p.FailureBackoff < 0 {
		return fmt.Errorf("%s: restart policy values must not be negative", layer)
	}
	return nil
}

func (p LayerPolicy) orDefault(def LayerPolicy) LayerPolicy {
	if p.FailureThreshold == 0 {
		p.FailureThreshold = def.FailureThreshold
	}
	if p.FailureDecay == 0 {
		p.FailureDecay = def.FailureDecay
	}
	if p.FailureBackoff == 0 {
		p.FailureBackoff = def.FailureBackoff
	}
	return p
}

func (p LayerPolicy) spec(hook suture.EventHook, timeout time.Duration) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: p.FailureThreshold,
		FailureDecay:     p.FailureDecay,
		FailureBackoff:   p.FailureBackoff,
		Timeout:          timeout,
	}
}

// SupervisorTree manages the supervisor hierarchy of the exporter.
//
// The tree is organized into two layers:
//   - sync: credential-backed polling and backfill (sync.Manager)
//   - api: HTTP server for scrapes, health and the status API
//
// A crashed sync layer does not stop the API layer from serving the last
// published snapshot. Failures and backoffs of both layers are recorded and
// reported by Services.
type SupervisorTree struct {
	root   *suture.Supervisor
	sync   *suture.Supervisor
	api    *suture.Supervisor
	events *eventRecorder
	config TreeConfig
}

// NewSupervisorTree creates a new supervisor tree with the given configuration.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Sync.validate(SyncLayer); err != nil {
		return nil, err
	}
	if err := config.API.validate(APILayer); err != nil {
		return nil, err
	}
	if config.ShutdownTimeout < 0 {
		return nil, fmt.Errorf("shutdown timeout must not be negative")
	}

	def := DefaultTreeConfig()
	config.Sync = config.Sync.orDefault(def.Sync)
	config.API = config.API.orDefault(def.API)
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	events := newEventRecorder(handler.MustHook())

	// The layers themselves only stop on shutdown.
	root := suture.New(RootName, def.API.spec(events.hook, config.ShutdownTimeout))
	syncLayer := suture.New(SyncLayer, config.Sync.spec(events.hook, config.ShutdownTimeout))
	api := suture.New(APILayer, config.API.spec(events.hook, config.ShutdownTimeout))

	root.Add(syncLayer)
	root.Add(api)

	return &SupervisorTree{
		root:   root,
		sync:   syncLayer,
		api:    api,
		events: events,
		config: config,
	}, nil
}

// AddSyncService adds a service to the sync layer supervisor.
func (t *SupervisorTree) AddSyncService(svc suture.Service) suture.ServiceToken {
	t.events.register(SyncLayer, serviceName(svc))
	return t.sync.Add(svc)
}

// AddAPIService adds a service to the API layer supervisor.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	t.events.register(APILayer, serviceName(svc))
	return t.api.Add(svc)
}

// Services reports every supervised service in the order it was added.
func (t *SupervisorTree) Services() []models.ServiceStatus {
	return t.events.snapshot()
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
// Returns a channel that receives the error (or nil) when the supervisor stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns the services that failed to stop within
// the configured shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// serviceName matches the name suture uses in its events.
func serviceName(svc suture.Service) string {
	if s, ok := svc.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%#v", svc)
}
