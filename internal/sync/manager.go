// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CredentialHealth reports whether the credential can still be refreshed.
// Implemented by *auth.Manager.
type CredentialHealth interface {
	Healthy() bool
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Poller   PollerConfig
	Backfill BackfillConfig
	// StartupBackfill, if set, is run in the background once Start returns.
	StartupBackfill *DateRange
}

// Manager owns the poller and the backfill runner for the lifetime of the
// process.
//
// Lifecycle Methods:
//   - Start(): begin polling and the optional startup backfill
//   - Stop(): cancel any backfill, stop polling and wait for both
//   - StartBackfill(): on-demand backfill, one at a time
type Manager struct {
	cfg         ManagerConfig
	poller      *Poller
	runner      *BackfillRunner
	credentials CredentialHealth

	mu      sync.Mutex
	running bool
	baseCtx context.Context
}

// NewManager wires a poller and backfill runner to the same fetcher and
// store. credentials may be nil.
func NewManager(cfg ManagerConfig, fetcher Fetcher, st SampleStore, credentials CredentialHealth) *Manager {
	logging.Info().
		Dur("interval", cfg.Poller.Interval).
		Int("resources", len(cfg.Poller.Kinds)).
		Int("chunk_days", cfg.Backfill.ChunkDays).
		Bool("startup_backfill", cfg.StartupBackfill != nil).
		Msg("Sync manager config loaded")

	return &Manager{
		cfg:         cfg,
		poller:      NewPoller(cfg.Poller, fetcher, st),
		runner:      NewBackfillRunner(NewBackfill(cfg.Backfill, fetcher, st)),
		credentials: credentials,
		baseCtx:     context.Background(),
	}
}

// Start begins periodic polling and, if configured, the startup backfill.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.baseCtx = ctx
	m.mu.Unlock()

	logging.Info().Msg("Starting sync manager...")

	if err := m.poller.Start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("start poller: %w", err)
	}

	if r := m.cfg.StartupBackfill; r != nil {
		runID, err := m.runner.Start(ctx, r.Start, r.End)
		if err != nil {
			logging.Warn().Err(err).Msg("Startup backfill not started")
		} else {
			logging.Info().
				Str("run_id", runID).
				Str("start", r.Start.Format(fitbit.DateLayout)).
				Str("end", r.End.Format(fitbit.DateLayout)).
				Msg("Startup backfill started")
		}
	}
	return nil
}

// Stop cancels a running backfill, stops polling and waits for both.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.runner.Cancel()
	m.poller.Stop()
	m.runner.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// StartBackfill starts an on-demand backfill bound to the manager's
// lifetime rather than the caller's.
func (m *Manager) StartBackfill(start, end time.Time) (string, error) {
	m.mu.Lock()
	ctx := m.baseCtx
	m.mu.Unlock()
	return m.runner.Start(ctx, start, end)
}

// Healthy is false once polling halted or the credential is unusable.
func (m *Manager) Healthy() bool {
	if m.credentials != nil && !m.credentials.Healthy() {
		return false
	}
	return m.poller.Healthy()
}

// Poller returns the poll scheduler.
func (m *Manager) Poller() *Poller {
	return m.poller
}

// Backfills returns the backfill runner.
func (m *Manager) Backfills() *BackfillRunner {
	return m.runner
}

// PollerStatus summarizes the poll scheduler.
func (m *Manager) PollerStatus() models.PollerStatus {
	return m.poller.Status()
}

// LastBackfill returns the running or most recent backfill report.
func (m *Manager) LastBackfill() (models.BackfillReport, bool) {
	return m.runner.Report()
}
