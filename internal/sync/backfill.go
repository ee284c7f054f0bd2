// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/mapper"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
	"github.com/tomtom215/fitbit-exporter/internal/store"
)

// DefaultChunkDays is the backfill window size when none is configured.
const DefaultChunkDays = 30

// ErrInvalidRange is returned for a backfill whose start is after its end.
var ErrInvalidRange = errors.New("backfill start is after end")

// BackfillConfig configures a Backfill.
type BackfillConfig struct {
	// Kinds are the resources to backfill. Resources without history,
	// such as devices, are ignored.
	Kinds []fitbit.Kind
	// ChunkDays is the window size. Each resource further splits a window
	// to stay within its own per-request range limit.
	ChunkDays  int
	Location   *time.Location
	UnitSystem string
	Clock      func() time.Time
}

// Backfill synchronizes a historical date range into the store.
type Backfill struct {
	cfg     BackfillConfig
	fetcher Fetcher
	store   SampleStore
}

// NewBackfill creates a backfill driver.
func NewBackfill(cfg BackfillConfig, fetcher Fetcher, st SampleStore) *Backfill {
	if cfg.ChunkDays <= 0 {
		cfg.ChunkDays = DefaultChunkDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Backfill{cfg: cfg, fetcher: fetcher, store: st}
}

// chunk is one resource over one date range, fetched and published as a
// single batch.
type chunk struct {
	kind       fitbit.Kind
	start, end time.Time
}

// window groups the chunks covering the same dates.
type window struct {
	start, end time.Time
	chunks     []chunk
}

// plan splits [start, end] into windows of ChunkDays, oldest first, and
// each window into chunks per resource. The order only depends on the
// configuration, so re-runs visit the same chunks in the same order.
func (b *Backfill) plan(start, end time.Time) []window {
	var windows []window
	for ws := start; !ws.After(end); ws = ws.AddDate(0, 0, b.cfg.ChunkDays) {
		we := minTime(ws.AddDate(0, 0, b.cfg.ChunkDays-1), end)
		w := window{start: ws, end: we}
		for _, kind := range b.cfg.Kinds {
			if !fitbit.IsDated(kind) {
				continue
			}
			size := b.cfg.ChunkDays
			if limit := fitbit.MaxRangeDays(kind); limit > 0 && limit < size {
				size = limit
			}
			for cs := ws; !cs.After(we); cs = cs.AddDate(0, 0, size) {
				w.chunks = append(w.chunks, chunk{kind: kind, start: cs, end: minTime(cs.AddDate(0, 0, size-1), we)})
			}
		}
		windows = append(windows, w)
	}
	return windows
}

// Run backfills [start, end], both inclusive, with a new run id.
func (b *Backfill) Run(ctx context.Context, start, end time.Time) (models.BackfillReport, error) {
	return b.run(ctx, uuid.NewString(), start, end, nil)
}

// run is Run with a fixed id and a progress callback invoked with a copy
// of the report after every chunk.
//
// Chunks that fail after the client's retries are skipped and reported.
// Cancellation, an unrecoverable credential and a store invariant
// violation abort the run; the partial report is returned with the error.
func (b *Backfill) run(ctx context.Context, runID string, start, end time.Time, progress func(models.BackfillReport)) (models.BackfillReport, error) {
	start = startOfDay(start, b.cfg.Location)
	end = startOfDay(end, b.cfg.Location)

	report := models.BackfillReport{
		RunID:     runID,
		Start:     start,
		End:       end,
		StartedAt: b.cfg.Clock(),
		Running:   true,
	}
	if end.Before(start) {
		return b.finish(report, ErrInvalidRange)
	}

	ctx = logging.ContextWithCorrelationID(fitbit.WithBackground(ctx), runID)
	log := logging.Ctx(ctx)

	windows := b.plan(start, end)
	for _, w := range windows {
		report.ChunksTotal += len(w.chunks)
	}
	log.Info().
		Str("start", start.Format(fitbit.DateLayout)).
		Str("end", end.Format(fitbit.DateLayout)).
		Int("chunks", report.ChunksTotal).
		Msg("Starting backfill")

	for _, w := range windows {
		complete := true
		for _, c := range w.chunks {
			if err := ctx.Err(); err != nil {
				return b.finish(report, err)
			}

			n, err := b.chunk(ctx, c)
			if err != nil {
				if fatalForRun(ctx, err) {
					return b.finish(report, fmt.Errorf("backfill %s %s..%s: %w",
						c.kind, c.start.Format(fitbit.DateLayout), c.end.Format(fitbit.DateLayout), err))
				}
				complete = false
				report.Skipped = append(report.Skipped, models.SkippedRange{
					Resource: string(c.kind),
					Start:    c.start,
					End:      c.end,
					Reason:   err.Error(),
				})
				metrics.RecordBackfillChunk(string(c.kind), true, 0)
				log.Warn().
					Err(err).
					Str("resource", string(c.kind)).
					Str("start", c.start.Format(fitbit.DateLayout)).
					Str("end", c.end.Format(fitbit.DateLayout)).
					Msg("Skipping backfill chunk")
			} else {
				report.SamplesWritten += n
				metrics.RecordBackfillChunk(string(c.kind), false, n)
			}
			report.ChunksDone++
			if progress != nil {
				progress(copyReport(report))
			}
		}

		if complete {
			if report.Earliest == nil {
				ws := w.start
				report.Earliest = &ws
			}
			we := w.end
			report.Latest = &we
		}
	}

	return b.finish(report, nil)
}

// chunk fetches every page of one chunk, maps it and publishes it.
func (b *Backfill) chunk(ctx context.Context, c chunk) (int, error) {
	var pages []page
	for _, req := range fitbit.RequestsFor(c.kind, c.start, c.end) {
		got, err := collect(ctx, b.fetcher, req)
		if err != nil {
			return 0, err
		}
		pages = append(pages, got...)
	}

	batch := mapPages(ctx, pages, mapper.RecordContext{
		UnitSystem: b.cfg.UnitSystem,
		Location:   b.cfg.Location,
		Now:        b.cfg.Clock(),
		Start:      c.start,
		End:        c.end,
	})
	if err := b.store.UpsertBatch(batch); err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Debug().
		Str("resource", string(c.kind)).
		Str("start", c.start.Format(fitbit.DateLayout)).
		Int("samples", len(batch)).
		Msg("Backfill chunk published")
	return len(batch), nil
}

func (b *Backfill) finish(report models.BackfillReport, err error) (models.BackfillReport, error) {
	report.Running = false
	report.FinishedAt = b.cfg.Clock()
	if err != nil {
		report.Error = err.Error()
	}
	logging.Info().
		Str("run_id", report.RunID).
		Int("chunks_done", report.ChunksDone).
		Int("chunks_total", report.ChunksTotal).
		Int("samples", report.SamplesWritten).
		Int("skipped", len(report.Skipped)).
		Err(err).
		Msg("Backfill finished")
	return report, err
}

// fatalForRun reports whether err must abort the whole run rather than
// skip one chunk.
func fatalForRun(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		auth.IsUnrecoverable(err) ||
		errors.Is(err, store.ErrInvariant)
}

func copyReport(r models.BackfillReport) models.BackfillReport {
	if r.Skipped != nil {
		r.Skipped = append([]models.SkippedRange(nil), r.Skipped...)
	}
	return r
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
