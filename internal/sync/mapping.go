// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/mapper"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// mapPages maps fetched pages into one batch. Mapping errors only affect
// the record or field they concern: they are logged, counted and skipped.
func mapPages(ctx context.Context, pages []page, base mapper.RecordContext) []models.MetricSample {
	var batch []models.MetricSample
	for _, p := range pages {
		rc := base
		rc.Series = p.req.Series
		samples, err := mapper.Map(p.req.Kind, p.rec, rc)
		if err != nil {
			for _, kind := range mapper.Kinds(err) {
				metrics.RecordMappingError(string(p.req.Kind), kind.String())
			}
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("resource", p.req.Label()).
				Int("samples", len(samples)).
				Msg("Skipped unmappable data")
		}
		batch = append(batch, samples...)
	}
	return batch
}

// startOfDay returns midnight of t's date in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
