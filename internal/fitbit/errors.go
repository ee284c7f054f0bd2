// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"errors"
	"fmt"
	"time"
)

// FetchErrorKind classifies a failed request.
type FetchErrorKind int

const (
	// RateLimited means HTTP 429. Retried after the server's hint.
	RateLimited FetchErrorKind = iota + 1
	// ServerError means HTTP 5xx or a transport failure. Retried.
	ServerError
	// BadRequest means any other HTTP 4xx. Not retried.
	BadRequest
	// Unauthorized means HTTP 401 even after a token refresh. Not retried.
	Unauthorized
)

func (k FetchErrorKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case ServerError:
		return "server_error"
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Sentinels matched by *FetchError through errors.Is.
var (
	ErrRateLimited  = errors.New("fitbit: rate limited")
	ErrServerError  = errors.New("fitbit: server error")
	ErrBadRequest   = errors.New("fitbit: bad request")
	ErrUnauthorized = errors.New("fitbit: unauthorized")

	// ErrCircuitOpen is returned without contacting the API while the
	// circuit breaker is open.
	ErrCircuitOpen = errors.New("fitbit: circuit breaker open")
)

// FetchError is a classified upstream failure.
type FetchError struct {
	Kind       FetchErrorKind
	Resource   string
	StatusCode int
	// RetryAfter is the server's hint for when to try again, if any.
	RetryAfter time.Duration
	// ErrorType is the first errorType of Fitbit's error envelope.
	ErrorType string
	Message   string
	Err       error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fitbit %s: %s", e.Resource, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.ErrorType != "" {
		msg += " " + e.ErrorType
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == RateLimited
	case ErrServerError:
		return e.Kind == ServerError
	case ErrBadRequest:
		return e.Kind == BadRequest
	case ErrUnauthorized:
		return e.Kind == Unauthorized
	}
	return false
}

// Retryable reports whether retrying the same request may succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == RateLimited || e.Kind == ServerError
}

// IsRequestLocal reports whether err only concerns the single request that
// produced it, so the caller may skip that request and carry on.
func IsRequestLocal(err error) bool {
	return errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnauthorized)
}
