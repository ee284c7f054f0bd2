// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Label is a single name/value pair attached to a metric sample.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Labels is a label set kept sorted by name.
type Labels []Label

// NewLabels builds a label set from alternating name/value arguments.
// It panics on an odd argument count, which is always a programming error.
//
//	models.NewLabels("date", "2024-03-01", "zone", "Cardio")
func NewLabels(pairs ...string) Labels {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("models.NewLabels: odd number of arguments (%d)", len(pairs)))
	}
	ls := make(Labels, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		ls = append(ls, Label{Name: pairs[i], Value: pairs[i+1]})
	}
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].Name < ls[j].Name })
	return ls
}

// Get returns the value of the named label and whether it is present.
func (ls Labels) Get(name string) (string, bool) {
	for _, l := range ls {
		if l.Name == name {
			return l.Value, true
		}
	}
	return "", false
}

// Names returns the label names in order.
func (ls Labels) Names() []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

// Values returns the label values in the same order as Names.
func (ls Labels) Values() []string {
	values := make([]string, len(ls))
	for i, l := range ls {
		values[i] = l.Value
	}
	return values
}

// Sorted returns the set ordered by name. It returns ls itself when it is
// already sorted and a sorted copy otherwise.
func (ls Labels) Sorted() Labels {
	if sort.SliceIsSorted(ls, func(i, j int) bool { return ls[i].Name < ls[j].Name }) {
		return ls
	}
	out := append(Labels(nil), ls...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate reports an error if a label name is empty or repeated.
func (ls Labels) Validate() error {
	seen := make(map[string]struct{}, len(ls))
	for _, l := range ls {
		if l.Name == "" {
			return fmt.Errorf("empty label name")
		}
		if _, dup := seen[l.Name]; dup {
			return fmt.Errorf("duplicate label name %q", l.Name)
		}
		seen[l.Name] = struct{}{}
	}
	return nil
}

// String renders the set in exposition style: {a="1",b="2"}.
func (ls Labels) String() string {
	if len(ls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range ls {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", l.Name, l.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// SeriesKey identifies a series by name and label set.
type SeriesKey string

// MetricSample is one observation of one series.
//
// ObservedAt is the time the measurement refers to (for daily summaries,
// 00:00 of the summarized day in the configured timezone), not the time it
// was fetched.
type MetricSample struct {
	Name       string    `json:"name"`
	Labels     Labels    `json:"labels"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Key returns the series identity of the sample. Label order does not
// affect the key.
func (s MetricSample) Key() SeriesKey {
	return SeriesKey(s.Name + s.Labels.Sorted().String())
}

// Validate checks the invariants every stored sample must satisfy.
func (s MetricSample) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("metric sample has empty name")
	}
	if err := s.Labels.Validate(); err != nil {
		return fmt.Errorf("metric %s: %w", s.Name, err)
	}
	return nil
}
