// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"context"
	"iter"
	"time"

	"github.com/goccy/go-json"
)

// FetchAll returns the pages of req lazily, one Fetch per iteration step.
//
// For endpoints without pagination the sequence has exactly one element.
// For paginated listings it follows Fitbit's pagination.next link until the
// link is empty, a page is empty, or a page reaches past req.End. The
// sequence stops after yielding the first error. Ranging over it again
// starts from the first page; there is no resumable cursor.
func (c *Client) FetchAll(ctx context.Context, req Request) iter.Seq2[RawRecord, error] {
	return func(yield func(RawRecord, error) bool) {
		page := req
		page.Cursor = ""
		seen := map[string]bool{}

		for {
			rec, err := c.Fetch(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
			if !resources[req.Kind].paginated {
				return
			}

			next, ok := nextPage(rec, req.End)
			if !ok || seen[next] {
				return
			}
			seen[next] = true
			page.Cursor = next
		}
	}
}

// listPage is the part of a paginated listing needed to walk it.
type listPage struct {
	Activities []struct {
		StartTime string `json:"startTime"`
	} `json:"activities"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// nextPage returns the next link of a listing page, or false when the
// listing is exhausted or has moved past end.
func nextPage(rec RawRecord, end time.Time) (string, bool) {
	var p listPage
	if err := json.Unmarshal(rec, &p); err != nil {
		return "", false
	}
	if p.Pagination.Next == "" || len(p.Activities) == 0 {
		return "", false
	}
	if !end.IsZero() {
		last := p.Activities[len(p.Activities)-1].StartTime
		if len(last) >= len(DateLayout) && last[:len(DateLayout)] > end.Format(DateLayout) {
			return "", false
		}
	}
	return p.Pagination.Next, true
}
