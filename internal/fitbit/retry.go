// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
)

// RetryPolicy decides whether and when a failed request is attempted again.
//
// Delays grow exponentially from BaseDelay (1s, 2s, 4s, ...) up to MaxDelay.
// A server-provided Retry-After hint replaces the computed delay when it is
// longer, so the client never comes back earlier than Fitbit asked.
type RetryPolicy struct {
	// MaxAttempts counts the first attempt. Values below 1 mean 1.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the backoff randomization factor in [0, 1).
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to IsRetryable.
	Retryable func(error) bool

	// Sleep waits between attempts. Defaults to a context-aware timer;
	// tests replace it to observe delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy retries five times with 1s, 2s, 4s, 8s delays.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
	}
}

// IsRetryable is the default retry predicate: rate limits, server errors
// and transient credential failures are retried; everything else is not.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return errors.Is(err, auth.ErrTransient) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. fn receives the 1-based attempt number.
// The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	b := p.newBackOff()

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) || ctx.Err() != nil {
			return err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return err
		}
		if hint := retryAfterHint(err); hint > delay {
			delay = hint
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func retryAfterHint(err error) time.Duration {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
