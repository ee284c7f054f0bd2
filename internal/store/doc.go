// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package store holds the latest known value of every exported series.

The store is the only state shared between the poll scheduler, the backfill
driver and the scrape handler. It keeps one models.MetricSample per series
(metric name plus label set) and never deletes entries: a series whose
upstream value stopped changing keeps scraping with its last known value.

# Consistency

Writes are copy-on-write. UpsertBatch clones the current series map, applies
the whole batch to the clone and publishes it with a single atomic pointer
swap. Snapshot loads that pointer without taking a lock, so a reader sees
either all of a batch or none of it, and a slow scrape never delays a
poll cycle. Writers are serialized by a mutex so concurrent batches from the
poller and the backfill driver cannot lose each other's updates.

# Usage

	s := store.New()
	if err := s.UpsertBatch(samples); err != nil {
	    // invariant violation: a mapper produced an invalid sample
	}
	for _, sample := range s.Snapshot() {
	    // render sample
	}
*/
package store
