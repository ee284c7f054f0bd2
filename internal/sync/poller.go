// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/mapper"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
	"github.com/tomtom215/fitbit-exporter/internal/store"
)

// State is the phase of the poller.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateMapping
	StatePublishing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateMapping:
		return "mapping"
	case StatePublishing:
		return "publishing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrCycleInFlight is returned by RunOnce while another cycle runs.
	ErrCycleInFlight = errors.New("poll cycle already in flight")

	// ErrPollerStopped is returned by RunOnce after polling was halted.
	ErrPollerStopped = errors.New("poller stopped")
)

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval between cycle starts.
	Interval time.Duration
	// Kinds are the resources fetched every cycle.
	Kinds []fitbit.Kind
	// Location decides what "today" is. Nil means UTC.
	Location   *time.Location
	UnitSystem string
	// MaxAuthFailures is the number of consecutive cycles failing with an
	// unrecoverable credential error after which polling stops.
	MaxAuthFailures int
	// Clock overrides time.Now.
	Clock func() time.Time
	// NewTicker overrides time.NewTicker. It returns the tick channel and
	// a function releasing the ticker.
	NewTicker func(d time.Duration) (<-chan time.Time, func())
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Poller periodically publishes the current day's data to the store.
type Poller struct {
	cfg     PollerConfig
	fetcher Fetcher
	store   SampleStore

	state    atomic.Int32
	inFlight atomic.Bool

	mu            sync.RWMutex
	running       bool
	stopped       bool
	stopChan      chan struct{}
	halt          chan struct{}
	wg            sync.WaitGroup
	lastCycleAt   time.Time
	lastSuccessAt time.Time
	lastErr       error
	cycles        int64
	skippedTicks  int64
	authFailures  int
	lastPublished int
}

// NewPoller creates a poller. It does not start polling.
func NewPoller(cfg PollerConfig, fetcher Fetcher, st SampleStore) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxAuthFailures <= 0 {
		cfg.MaxAuthFailures = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = newTicker
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		halt:    make(chan struct{}),
	}
}

// Start runs one cycle immediately and then one per interval until ctx is
// done, Stop is called or polling halts.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller is already running")
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPollerStopped
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	metrics.PollerRunning.Set(1)
	logging.Info().
		Dur("interval", p.cfg.Interval).
		Int("resources", len(p.cfg.Kinds)).
		Msg("Starting poller")

	p.wg.Add(1)
	go p.loop(ctx, p.stopChan)
	return nil
}

// Stop ends the loop and waits for an in-flight cycle to finish. Cycles
// observe ctx, so cancelling the Start context makes this prompt.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	metrics.PollerRunning.Set(0)
	logging.Info().Msg("Poller stopped")
}

// loop never blocks on a cycle: ticks arriving while one is in flight are
// dropped by trigger. The ticker runs from Start, so cycle starts stay one
// interval apart whatever each cycle's outcome or duration.
func (p *Poller) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ticks, stopTicker := p.cfg.NewTicker(p.cfg.Interval)
	defer stopTicker()

	p.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-p.halt:
			logging.Error().Msg("Polling halted; serving the last known snapshot")
			return
		case <-ticks:
			p.trigger(ctx)
		}
	}
}

// trigger starts a cycle unless one is in flight.
func (p *Poller) trigger(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.mu.Lock()
		p.skippedTicks++
		p.mu.Unlock()
		metrics.PollSkippedTicks.Inc()
		logging.Warn().
			Str("state", p.State().String()).
			Msg("Previous poll cycle still running, skipping tick")
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		if _, err := p.cycle(ctx); err != nil && !errors.Is(err, ErrPollerStopped) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Poll cycle failed")
		}
	}()
	return true
}

// RunOnce runs one cycle synchronously and returns the number of samples
// published. It fails with ErrCycleInFlight rather than overlap a running
// cycle.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return 0, ErrCycleInFlight
	}
	defer p.inFlight.Store(false)
	return p.cycle(ctx)
}

// cycle performs Fetching -> Mapping -> Publishing. Nothing is published
// unless every step up to the store write succeeded.
func (p *Poller) cycle(ctx context.Context) (int, error) {
	if p.Stopped() {
		return 0, ErrPollerStopped
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	started := p.cfg.Clock()
	today := startOfDay(started, p.cfg.Location)
	log := logging.Ctx(ctx)

	p.mu.Lock()
	p.lastCycleAt = started
	p.cycles++
	p.mu.Unlock()

	p.setState(StateFetching)
	var pages []page
	for _, kind := range p.cfg.Kinds {
		for _, req := range fitbit.RequestsFor(kind, today, today) {
			got, err := collect(ctx, p.fetcher, req)
			if err == nil {
				pages = append(pages, got...)
				continue
			}
			if fitbit.IsRequestLocal(err) {
				log.Warn().Err(err).Str("resource", req.Label()).Msg("Skipping resource for this cycle")
				continue
			}
			return 0, p.fail(ctx, started, err)
		}
	}

	p.setState(StateMapping)
	batch := mapPages(ctx, pages, mapper.RecordContext{
		UnitSystem: p.cfg.UnitSystem,
		Location:   p.cfg.Location,
		Now:        started,
		Start:      today,
		End:        today,
	})

	p.setState(StatePublishing)
	if err := p.store.UpsertBatch(batch); err != nil {
		return 0, p.fail(ctx, started, err)
	}

	p.mu.Lock()
	p.lastSuccessAt = started
	p.lastErr = nil
	p.authFailures = 0
	p.lastPublished = len(batch)
	p.mu.Unlock()
	p.setState(StateIdle)

	metrics.RecordPollCycle("success", p.cfg.Clock().Sub(started))
	log.Info().
		Int("samples", len(batch)).
		Int("pages", len(pages)).
		Str("date", today.Format(fitbit.DateLayout)).
		Msg("Poll cycle published")
	return len(batch), nil
}

// fail records a failed cycle and halts polling when the failure is fatal.
func (p *Poller) fail(ctx context.Context, started time.Time, err error) error {
	result := "failed"
	halt := false
	reason := ""

	p.mu.Lock()
	p.lastErr = err
	switch {
	case errors.Is(err, store.ErrInvariant):
		halt, reason = true, "store invariant violated"
	case auth.IsUnrecoverable(err):
		result = "auth_failed"
		p.authFailures++
		if p.authFailures >= p.cfg.MaxAuthFailures {
			halt, reason = true, "credential is no longer valid"
		}
	}
	failures := p.authFailures
	if halt && !p.stopped {
		p.stopped = true
		close(p.halt)
	} else {
		halt = false
	}
	p.mu.Unlock()

	metrics.RecordPollCycle(result, p.cfg.Clock().Sub(started))
	if halt {
		p.setState(StateStopped)
		metrics.PollerRunning.Set(0)
		logging.Ctx(ctx).Error().
			Err(err).
			Int("consecutive_auth_failures", failures).
			Str("reason", reason).
			Msg("Stopping poller")
	} else if !p.Stopped() {
		p.setState(StateIdle)
	}
	return err
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// State returns the current phase.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Stopped reports whether polling was halted by a fatal error.
func (p *Poller) Stopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// Healthy reports whether the poller still refreshes data.
func (p *Poller) Healthy() bool {
	return !p.Stopped()
}

// Status returns a snapshot of the poller's bookkeeping.
func (p *Poller) Status() models.PollerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := models.PollerStatus{
		State:            p.State().String(),
		Interval:         p.cfg.Interval.String(),
		Cycles:           p.cycles,
		SkippedTicks:     p.skippedTicks,
		AuthFailures:     p.authFailures,
		Stopped:          p.stopped,
		LastPublishCount: p.lastPublished,
	}
	if !p.lastCycleAt.IsZero() {
		t := p.lastCycleAt
		status.LastCycleAt = &t
	}
	if !p.lastSuccessAt.IsZero() {
		t := p.lastSuccessAt
		status.LastSuccessAt = &t
	}
	if p.lastErr != nil {
		status.LastError = p.lastErr.Error()
	}
	return status
}
