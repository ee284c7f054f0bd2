// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// ErrBackfillRunning is returned when a backfill is requested while one is
// still in progress.
var ErrBackfillRunning = errors.New("a backfill is already running")

// BackfillRunner runs at most one backfill at a time and remembers the
// report of the latest one.
type BackfillRunner struct {
	backfill *Backfill

	mu      sync.Mutex
	running bool
	report  *models.BackfillReport
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBackfillRunner wraps a backfill driver.
func NewBackfillRunner(b *Backfill) *BackfillRunner {
	return &BackfillRunner{backfill: b}
}

// Start launches a backfill in the background and returns its run id.
// The run ends early when ctx is done or Cancel is called.
func (r *BackfillRunner) Start(ctx context.Context, start, end time.Time) (string, error) {
	runCtx, runID, err := r.begin(ctx, start, end)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(runCtx, runID, start, end)
	}()
	return runID, nil
}

// Run performs a backfill synchronously.
func (r *BackfillRunner) Run(ctx context.Context, start, end time.Time) (models.BackfillReport, error) {
	runCtx, runID, err := r.begin(ctx, start, end)
	if err != nil {
		return models.BackfillReport{}, err
	}
	return r.execute(runCtx, runID, start, end)
}

func (r *BackfillRunner) begin(ctx context.Context, start, end time.Time) (context.Context, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil, "", ErrBackfillRunning
	}
	if end.Before(start) {
		return nil, "", ErrInvalidRange
	}

	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	r.running = true
	r.cancel = cancel
	r.report = &models.BackfillReport{
		RunID:     runID,
		Start:     start,
		End:       end,
		StartedAt: r.backfill.cfg.Clock(),
		Running:   true,
	}
	metrics.BackfillRunning.Set(1)
	return runCtx, runID, nil
}

func (r *BackfillRunner) execute(ctx context.Context, runID string, start, end time.Time) (models.BackfillReport, error) {
	report, err := r.backfill.run(ctx, runID, start, end, r.update)
	if err != nil {
		logging.Error().Err(err).Str("run_id", runID).Msg("Backfill aborted")
	}

	r.mu.Lock()
	final := copyReport(report)
	r.report = &final
	r.running = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	metrics.BackfillRunning.Set(0)
	return report, err
}

func (r *BackfillRunner) update(report models.BackfillReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = &report
}

// Running reports whether a backfill is in progress.
func (r *BackfillRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Report returns the progress of the running backfill, or the final
// report of the last one. ok is false if no backfill ever ran.
func (r *BackfillRunner) Report() (models.BackfillReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.report == nil {
		return models.BackfillReport{}, false
	}
	return copyReport(*r.report), true
}

// Cancel stops the running backfill, if any.
func (r *BackfillRunner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until background runs started with Start have finished.
func (r *BackfillRunner) Wait() {
	r.wg.Wait()
}
