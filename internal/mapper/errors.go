// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a mapping failure.
type ErrorKind int

const (
	// UnsupportedShape means the record as a whole cannot be mapped.
	UnsupportedShape ErrorKind = iota + 1
	// MalformedField means a single field could not be read.
	MalformedField
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedShape:
		return "unsupported_shape"
	case MalformedField:
		return "malformed_field"
	default:
		return "unknown"
	}
}

// Sentinels matched by *Error through errors.Is.
var (
	ErrUnsupportedShape = errors.New("mapper: unsupported shape")
	ErrMalformedField   = errors.New("mapper: malformed field")
)

// Error is a mapping failure for one record or field.
type Error struct {
	Kind     ErrorKind
	Resource string
	// Field is the JSON path of the offending field, if any.
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("map %s: %s", e.Resource, e.Kind)
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnsupportedShape:
		return e.Kind == UnsupportedShape
	case ErrMalformedField:
		return e.Kind == MalformedField
	}
	return false
}

// Kinds returns the kind of every *Error joined in err, in order.
func Kinds(err error) []ErrorKind {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []ErrorKind
		for _, inner := range joined.Unwrap() {
			out = append(out, Kinds(inner)...)
		}
		return out
	}
	var me *Error
	if errors.As(err, &me) {
		return []ErrorKind{me.Kind}
	}
	return nil
}
