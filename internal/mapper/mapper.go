// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// localTimeLayout is the layout of Fitbit timestamps without an offset,
// which are in the user's profile timezone.
const localTimeLayout = "2006-01-02T15:04:05.000"

// RecordContext carries what a payload does not say about itself.
type RecordContext struct {
	// Series is the time series the request asked for. Required for
	// active_minutes, which Fitbit returns one intensity at a time.
	Series string
	// UnitSystem is the unit system the request was made with.
	UnitSystem string
	// Location is the user's timezone. Nil means UTC.
	Location *time.Location
	// Now is the observation time of samples that describe current state.
	Now time.Time
	// Start and End, when set, restrict listings to entries on those days.
	Start, End time.Time
}

func (rc RecordContext) location() *time.Location {
	if rc.Location == nil {
		return time.UTC
	}
	return rc.Location
}

// Map converts one raw payload of the given kind into samples.
//
// The returned error is nil, an UnsupportedShape *Error (no samples), or a
// join of MalformedField *Errors accompanying the samples that could be
// read.
func Map(kind fitbit.Kind, rec fitbit.RawRecord, rc RecordContext) ([]models.MetricSample, error) {
	b := &builder{resource: string(kind), rc: rc, units: unitsFor(rc.UnitSystem)}

	var err error
	switch kind {
	case fitbit.KindSteps, fitbit.KindDistance, fitbit.KindFloors, fitbit.KindElevation, fitbit.KindCalories:
		err = b.timeSeries(kind, rec)
	case fitbit.KindActiveMinutes:
		err = b.activeMinutes(rec)
	case fitbit.KindHeart:
		err = b.heart(rec)
	case fitbit.KindSleep:
		err = b.sleep(rec)
	case fitbit.KindWeight:
		err = b.weight(rec)
	case fitbit.KindExercise:
		err = b.exercise(rec)
	case fitbit.KindDevices:
		err = b.devices(rec)
	default:
		err = errors.New("unknown resource kind")
	}
	if err != nil {
		return nil, &Error{Kind: UnsupportedShape, Resource: string(kind), Err: err}
	}
	return b.samples, errors.Join(b.errs...)
}

// ========================================
// Sample builder
// ========================================

// builder accumulates the samples and field errors of one record.
type builder struct {
	resource string
	rc       RecordContext
	units    units
	samples  []models.MetricSample
	errs     []error
}

// number reads raw as a float and appends name*scale as a sample.
// Missing and null fields are skipped silently.
func (b *builder) number(name string, raw json.RawMessage, scale float64, at time.Time, labels models.Labels, field string) {
	v, ok, err := parseNumber(raw)
	if err != nil {
		b.malformed(field, err)
		return
	}
	if !ok {
		return
	}
	b.value(name, v*scale, at, labels)
}

func (b *builder) value(name string, v float64, at time.Time, labels models.Labels) {
	b.samples = append(b.samples, models.MetricSample{
		Name:       name,
		Labels:     labels,
		Value:      v,
		ObservedAt: at,
	})
}

func (b *builder) malformed(field string, err error) {
	b.errs = append(b.errs, &Error{Kind: MalformedField, Resource: b.resource, Field: field, Err: err})
}

// day parses a yyyy-MM-dd date into midnight in the user's timezone.
func (b *builder) day(field, s string) (time.Time, bool) {
	d, err := time.ParseInLocation(fitbit.DateLayout, strings.TrimSpace(s), b.rc.location())
	if err != nil {
		b.malformed(field, err)
		return time.Time{}, false
	}
	return d, true
}

// localTime parses a Fitbit timestamp. Timestamps without an offset are in
// the user's timezone. ok is false for empty input.
func (b *builder) localTime(field, s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{localTimeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, b.rc.location()); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000Z07:00", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	b.malformed(field, fmt.Errorf("unrecognized timestamp %q", s))
	return time.Time{}, false
}

// inWindow reports whether d lies within the context's Start/End days.
func (b *builder) inWindow(d time.Time) bool {
	key := d.Format(fitbit.DateLayout)
	if !b.rc.Start.IsZero() && key < b.rc.Start.Format(fitbit.DateLayout) {
		return false
	}
	if !b.rc.End.IsZero() && key > b.rc.End.Format(fitbit.DateLayout) {
		return false
	}
	return true
}

// ========================================
// Field decoding
// ========================================

var null = []byte("null")

// parseNumber reads a JSON number or a string holding one. Fitbit encodes
// time series values as strings. ok is false for missing, null and empty
// values.
func parseNumber(raw json.RawMessage) (v float64, ok bool, err error) {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || bytes.Equal(s, null) {
		return 0, false, nil
	}
	text := string(s)
	if s[0] == '"' {
		if err := json.Unmarshal(s, &text); err != nil {
			return 0, false, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, false, nil
		}
	}
	v, err = strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %s", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("not a finite number: %s", s)
	}
	return v, true, nil
}

// parseID reads a JSON number or string used as an identifier.
func parseID(raw json.RawMessage) string {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || bytes.Equal(s, null) {
		return ""
	}
	if s[0] == '"' {
		var text string
		if json.Unmarshal(s, &text) == nil {
			return text
		}
		return ""
	}
	return string(s)
}

// decodeObject decodes rec into v, requiring a JSON object.
func decodeObject(rec fitbit.RawRecord, v any) error {
	trimmed := bytes.TrimSpace(rec)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}
