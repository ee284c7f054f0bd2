// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// ErrInvariant is returned when a batch contains a sample that can never be
// valid. It indicates a programming error upstream of the store.
var ErrInvariant = errors.New("metric store invariant violated")

// generation is an immutable view of the store contents.
type generation struct {
	series    map[models.SeriesKey]models.MetricSample
	version   uint64
	updatedAt time.Time
}

// Stats describes the store for status reporting.
type Stats struct {
	Series    int       `json:"series"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Batches   int64     `json:"batches"`
	Rejected  int64     `json:"rejected_batches"`
}

// Store is a concurrency-safe map from series identity to latest sample.
type Store struct {
	writeMu  sync.Mutex
	current  atomic.Pointer[generation]
	batches  atomic.Int64
	rejected atomic.Int64
	now      func() time.Time
	onUpdate func(series int)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp generations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUpdateHook registers a callback invoked after every published batch
// with the new series count. It is used to keep the store-size gauge current.
func WithUpdateHook(fn func(series int)) Option {
	return func(s *Store) { s.onUpdate = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&generation{series: map[models.SeriesKey]models.MetricSample{}})
	return s
}

// UpsertBatch inserts or replaces the sample of every series in samples and
// publishes the result atomically.
//
// Series not present in samples are left untouched. When the same series
// appears more than once in samples, the last occurrence wins; label order
// does not distinguish series. An empty batch
// is a no-op and does not bump the version.
//
// Returns:
//   - nil when the batch was published
//   - an error wrapping ErrInvariant when any sample is invalid, in which
//     case nothing from the batch is published
func (s *Store) UpsertBatch(samples []models.MetricSample) error {
	for i := range samples {
		if err := samples[i].Validate(); err != nil {
			s.rejected.Add(1)
			return fmt.Errorf("%w: sample %d: %w", ErrInvariant, i, err)
		}
	}
	if len(samples) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current.Load()
	next := &generation{
		series:    make(map[models.SeriesKey]models.MetricSample, len(prev.series)+len(samples)),
		version:   prev.version + 1,
		updatedAt: s.now(),
	}
	for k, v := range prev.series {
		next.series[k] = v
	}
	for _, sample := range samples {
		// Stored label sets are sorted copies.
		sample.Labels = append(models.Labels(nil), sample.Labels...).Sorted()
		next.series[sample.Key()] = sample
	}

	s.current.Store(next)
	s.batches.Add(1)

	if s.onUpdate != nil {
		s.onUpdate(len(next.series))
	}
	return nil
}

// Snapshot returns a point-in-time copy of every stored sample, sorted by
// series key. The returned slice is owned by the caller; label sets are
// shared with the store and must not be modified.
func (s *Store) Snapshot() []models.MetricSample {
	gen := s.current.Load()

	keys := make([]models.SeriesKey, 0, len(gen.series))
	for k := range gen.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]models.MetricSample, len(keys))
	for i, k := range keys {
		out[i] = gen.series[k]
	}
	return out
}

// Get returns the stored sample of one series.
func (s *Store) Get(key models.SeriesKey) (models.MetricSample, bool) {
	sample, ok := s.current.Load().series[key]
	return sample, ok
}

// Len returns the number of stored series.
func (s *Store) Len() int {
	return len(s.current.Load().series)
}

// Version returns the number of batches published so far.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}

// Stats returns a summary of the store.
func (s *Store) Stats() Stats {
	gen := s.current.Load()
	return Stats{
		Series:    len(gen.series),
		Version:   gen.version,
		UpdatedAt: gen.updatedAt,
		Batches:   s.batches.Load(),
		Rejected:  s.rejected.Load(),
	}
}
