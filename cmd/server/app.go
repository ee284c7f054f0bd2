// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/fitbit-exporter/internal/api"
	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/config"
	"github.com/tomtom215/fitbit-exporter/internal/exporter"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/store"
	"github.com/tomtom215/fitbit-exporter/internal/supervisor"
	"github.com/tomtom215/fitbit-exporter/internal/supervisor/services"
	"github.com/tomtom215/fitbit-exporter/internal/sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the wired components shared by server and dump mode.
type app struct {
	cfg         *config.Config
	loc         *time.Location
	credentials *auth.Manager
	tokenStore  *auth.BadgerTokenStore
	client      *fitbit.Client
	store       *store.Store
	sync        *sync.Manager
	now         func() time.Time
}

// newApp wires credentials, the upstream client, the store and the sync
// manager. Close must be called to release the token store.
func newApp(ctx context.Context, cfg *config.Config, now func() time.Time) (*app, error) {
	if now == nil {
		now = time.Now
	}
	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, err
	}
	kinds, err := cfg.Sync.Kinds()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loc: loc, now: now}

	var tokenStore auth.TokenStore
	if cfg.Fitbit.TokenStore.Enabled {
		enc, err := auth.NewEncryptor(cfg.Fitbit.ClientSecret, []byte(cfg.Fitbit.ClientID))
		if err != nil {
			return nil, fmt.Errorf("token store encryption: %w", err)
		}
		a.tokenStore, err = auth.OpenBadgerTokenStore(cfg.Fitbit.TokenStore.Path, enc)
		if err != nil {
			return nil, err
		}
		tokenStore = a.tokenStore
		logging.Info().Str("path", cfg.Fitbit.TokenStore.Path).Msg("Token store enabled")
	}

	tokenHTTP := &http.Client{Timeout: cfg.Fitbit.RequestTimeout}
	a.credentials, err = auth.NewManager(ctx, auth.ManagerConfig{
		Refresher: auth.NewOAuth2Refresher(cfg.Fitbit.ClientID, cfg.Fitbit.ClientSecret, cfg.Fitbit.TokenURL, tokenHTTP),
		Initial: auth.Token{
			AccessToken:  cfg.Fitbit.AccessToken,
			RefreshToken: cfg.Fitbit.RefreshToken,
		},
		Store:          tokenStore,
		SafetyMargin:   cfg.Fitbit.TokenRefreshMargin,
		RefreshTimeout: cfg.Fitbit.RequestTimeout,
		Clock:          now,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("credential manager: %w", err)
	}

	a.client, err = fitbit.NewClient(fitbit.Config{
		BaseURL:         cfg.Fitbit.APIURL,
		UnitSystem:      cfg.Fitbit.UnitSystem,
		Timeout:         cfg.Fitbit.RequestTimeout,
		RequestsPerHour: cfg.Fitbit.RequestsPerHour,
		RequestBurst:    cfg.Fitbit.RequestBurst,
		Retry:           cfg.Sync.RetryPolicy(),
		Now:             now,

		BackgroundRequestsPerHour: cfg.Fitbit.BackfillRequests,
	}, a.credentials)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("fitbit client: %w", err)
	}

	warnPollBudget(cfg, kinds)

	a.store = store.New(
		store.WithClock(now),
		store.WithUpdateHook(func(series int) { metrics.StoreSeries.Set(float64(series)) }),
	)

	managerCfg := sync.ManagerConfig{
		Poller: sync.PollerConfig{
			Interval:        cfg.Sync.Interval,
			Kinds:           kinds,
			Location:        loc,
			UnitSystem:      cfg.Fitbit.UnitSystem,
			MaxAuthFailures: cfg.Sync.MaxAuthFailures,
			Clock:           now,
		},
		Backfill: sync.BackfillConfig{
			Kinds:      kinds,
			ChunkDays:  cfg.Backfill.ChunkDays,
			Location:   loc,
			UnitSystem: cfg.Fitbit.UnitSystem,
			Clock:      now,
		},
	}
	if cfg.Backfill.Enabled {
		start, end, err := cfg.Backfill.Range(now(), loc)
		if err != nil {
			a.Close()
			return nil, err
		}
		managerCfg.StartupBackfill = &sync.DateRange{Start: start, End: end}
	}
	a.sync = sync.NewManager(managerCfg, a.client, a.store, a.credentials)

	return a, nil
}

// warnPollBudget logs when polling alone needs more requests per hour than
// the budget left over after the backfill reservation.
func warnPollBudget(cfg *config.Config, kinds []fitbit.Kind) {
	if cfg.Fitbit.RequestsPerHour <= 0 {
		return
	}
	perCycle := fitbit.RequestsPerDay(kinds)
	needed := float64(perCycle) * float64(time.Hour) / float64(cfg.Sync.Interval)
	available := cfg.Fitbit.RequestsPerHour - cfg.Fitbit.BackfillRequests
	if needed <= float64(available) {
		return
	}
	logging.Warn().
		Int("requests_per_cycle", perCycle).
		Dur("interval", cfg.Sync.Interval).
		Int("poll_budget_per_hour", available).
		Msg("Poll interval is too short for the request budget; cycles will overlap and ticks will be skipped")
}

// Close releases the token store.
func (a *app) Close() {
	if a.tokenStore == nil {
		return
	}
	if err := a.tokenStore.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing token store")
	}
	a.tokenStore = nil
}

// handler builds the scrape and API router. svcs may be nil.
func (a *app) handler(svcs api.ServiceReporter) http.Handler {
	collector := exporter.NewCollector(a.store, a.cfg.Exporter.ExposeTimestamps)
	scrape := exporter.NewHandler(exporter.NewRegistry(collector), prometheus.DefaultGatherer)

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = a.cfg.Server.CORSOrigins
	mwCfg.BackfillRateLimit = a.cfg.Server.BackfillRateLimit

	opts := []api.HandlerOption{
		api.WithMaxBackfillDays(a.cfg.Backfill.Days),
		api.WithClock(a.now),
		api.WithUpstream(a.client),
	}
	if svcs != nil {
		opts = append(opts, api.WithServices(svcs))
	}
	h := api.NewHandler(version, a.loc, a.credentials, a.sync, a.store, opts...)
	return api.NewRouter(mwCfg, h, scrape)
}

// serve runs the supervisor tree until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = a.cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	addr := a.cfg.Server.ListenAddress()
	server := &http.Server{
		Handler:           a.handler(tree),
		ReadHeaderTimeout: a.cfg.Server.Timeout,
		ReadTimeout:       a.cfg.Server.Timeout,
		WriteTimeout:      a.cfg.Server.Timeout,
		IdleTimeout:       2 * a.cfg.Server.Timeout,
	}

	tree.AddSyncService(services.NewSyncService(a.sync))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, a.cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("address", addr).
		Str("version", version).
		Msg("Starting supervisor tree")

	errCh := tree.ServeBackground(ctx)
	var serveErr error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}

// dump backfills the configured range synchronously and writes every sample
// with its timestamp to path.
func (a *app) dump(ctx context.Context, path string) error {
	start, end, err := a.cfg.Backfill.Range(a.now(), a.loc)
	if err != nil {
		return err
	}

	logging.Info().
		Str("start", start.Format(fitbit.DateLayout)).
		Str("end", end.Format(fitbit.DateLayout)).
		Str("output", path).
		Msg("Dumping historical metrics")

	report, err := a.sync.Backfills().Run(ctx, start, end)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	if len(report.Skipped) > 0 {
		logging.Warn().Int("chunks", len(report.Skipped)).Msg("Some backfill chunks failed and are missing from the dump")
	}

	reg := exporter.NewRegistry(exporter.NewCollector(a.store, true))
	series, err := exporter.WriteFile(path, reg)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	logging.Info().
		Int("series", series).
		Int("samples_written", report.SamplesWritten).
		Str("output", path).
		Msg("Historical metrics written")
	return nil
}
