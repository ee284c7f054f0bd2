// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import "errors"

// ErrorKind classifies a credential failure.
type ErrorKind int

const (
	// KindTransient failures may succeed if retried later.
	KindTransient ErrorKind = iota + 1

	// KindUnrecoverable failures mean the credential is permanently invalid.
	KindUnrecoverable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

var (
	// ErrTransient matches every *Error of kind KindTransient.
	ErrTransient = errors.New("transient credential failure")

	// ErrUnrecoverable matches every *Error of kind KindUnrecoverable.
	ErrUnrecoverable = errors.New("credential permanently rejected")
)

// Error is returned by the Manager and Refresher implementations.
type Error struct {
	Kind ErrorKind
	// Reason is the upstream error code when one was returned (invalid_grant, ...).
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "token refresh failed (" + e.Kind.String()
	if e.Reason != "" {
		msg += ", " + e.Reason
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrUnrecoverable:
		return e.Kind == KindUnrecoverable
	}
	return false
}

func transientError(reason string, err error) *Error {
	return &Error{Kind: KindTransient, Reason: reason, Err: err}
}

func unrecoverableError(reason string, err error) *Error {
	return &Error{Kind: KindUnrecoverable, Reason: reason, Err: err}
}

// IsUnrecoverable reports whether err means the credential is dead.
func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrUnrecoverable)
}

// errNoRefreshToken is wrapped when the manager has nothing to redeem.
var errNoRefreshToken = errors.New("no refresh token available")
