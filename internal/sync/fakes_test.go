// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"fmt"
	"iter"
	"strings"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
	"github.com/tomtom215/fitbit-exporter/internal/store"
)

// fakeFetcher answers requests through respond and records them.
type fakeFetcher struct {
	mu      gosync.Mutex
	calls   []fitbit.Request
	respond func(req fitbit.Request) (fitbit.RawRecord, error)

	// When gate is set, every fetch signals entered and waits for gate.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) FetchAll(ctx context.Context, req fitbit.Request) iter.Seq2[fitbit.RawRecord, error] {
	return func(yield func(fitbit.RawRecord, error) bool) {
		f.mu.Lock()
		f.calls = append(f.calls, req)
		f.mu.Unlock()

		if f.gate != nil {
			select {
			case f.entered <- struct{}{}:
			default:
			}
			select {
			case <-f.gate:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
		rec, err := f.respond(req)
		yield(rec, err)
	}
}

func (f *fakeFetcher) requests() []fitbit.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fitbit.Request(nil), f.calls...)
}

// countingStore wraps a real store and counts batches.
type countingStore struct {
	*store.Store
	batches atomic.Int32
	err     error
}

func newCountingStore() *countingStore {
	return &countingStore{Store: store.New()}
}

func (s *countingStore) UpsertBatch(samples []models.MetricSample) error {
	s.batches.Add(1)
	if s.err != nil {
		return s.err
	}
	return s.Store.UpsertBatch(samples)
}

func date(s string) time.Time {
	t, err := time.Parse(fitbit.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seriesPayload answers a time series request with value = day of month
// * 100 for every day in the request range.
func seriesPayload(req fitbit.Request) fitbit.RawRecord {
	key := string(req.Kind)
	if req.Series != "" {
		key = req.Series
	}
	var entries []string
	for d := req.Start; !d.After(req.End); d = d.AddDate(0, 0, 1) {
		entries = append(entries, fmt.Sprintf(`{"dateTime":%q,"value":"%d"}`, d.Format(fitbit.DateLayout), d.Day()*100))
	}
	return fitbit.RawRecord(fmt.Sprintf(`{"activities-%s":[%s]}`, key, strings.Join(entries, ",")))
}

func okResponder(req fitbit.Request) (fitbit.RawRecord, error) {
	return seriesPayload(req), nil
}

// fakeCredentials reports a fixed health.
type fakeCredentials struct {
	healthy atomic.Bool
}

func (c *fakeCredentials) Healthy() bool {
	return c.healthy.Load()
}

// manualClock is a clock whose tickers fire only when Advance moves time
// past their next deadline.
type manualClock struct {
	mu      gosync.Mutex
	now     time.Time
	tickers []*manualTicker
}

type manualTicker struct {
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t.c, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// Advance moves time forward and delivers due ticks. Like time.Ticker, a
// tick is dropped when the previous one has not been received.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		for !t.stopped && !t.next.After(c.now) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
}
