// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"iter"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// Fetcher retrieves raw pages from the Fitbit API. Implemented by
// *fitbit.Client.
type Fetcher interface {
	FetchAll(ctx context.Context, req fitbit.Request) iter.Seq2[fitbit.RawRecord, error]
}

// SampleStore receives mapped samples. Implemented by *store.Store.
type SampleStore interface {
	UpsertBatch(samples []models.MetricSample) error
}

// page is one fetched payload together with the request that produced it.
type page struct {
	req fitbit.Request
	rec fitbit.RawRecord
}

// collect drains FetchAll for req. On error the pages read so far are
// discarded.
func collect(ctx context.Context, f Fetcher, req fitbit.Request) ([]page, error) {
	var pages []page
	for rec, err := range f.FetchAll(ctx, req) {
		if err != nil {
			return nil, err
		}
		pages = append(pages, page{req: req, rec: rec})
	}
	return pages, nil
}
