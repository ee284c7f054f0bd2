// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// DateLayout is the date format used in Fitbit URLs and payloads.
const DateLayout = "2006-01-02"

// Kind identifies a Fitbit resource the exporter knows how to fetch and map.
type Kind string

const (
	KindSteps         Kind = "steps"
	KindDistance      Kind = "distance"
	KindFloors        Kind = "floors"
	KindElevation     Kind = "elevation"
	KindCalories      Kind = "calories"
	KindActiveMinutes Kind = "active_minutes"
	KindHeart         Kind = "heart"
	KindSleep         Kind = "sleep"
	KindWeight        Kind = "weight"
	KindExercise      Kind = "exercise"
	KindDevices       Kind = "devices"
)

// resource describes how one Kind is fetched.
type resource struct {
	// series are the activity time series names; a request is issued per series.
	series []string
	// path builds the request path from the series (if any) and dates.
	path func(series, start, end string) string
	// maxRangeDays is the largest inclusive date span of one request.
	// Zero means the endpoint is not date ranged.
	maxRangeDays int
	paginated    bool
}

func timeSeriesPath(series, start, end string) string {
	return fmt.Sprintf("/1/user/-/activities/%s/date/%s/%s.json", series, start, end)
}

var resources = map[Kind]resource{
	KindSteps:     {series: []string{"steps"}, path: timeSeriesPath, maxRangeDays: 1095},
	KindDistance:  {series: []string{"distance"}, path: timeSeriesPath, maxRangeDays: 1095},
	KindFloors:    {series: []string{"floors"}, path: timeSeriesPath, maxRangeDays: 1095},
	KindElevation: {series: []string{"elevation"}, path: timeSeriesPath, maxRangeDays: 1095},
	KindCalories:  {series: []string{"calories"}, path: timeSeriesPath, maxRangeDays: 1095},
	KindActiveMinutes: {
		series:       []string{"minutesSedentary", "minutesLightlyActive", "minutesFairlyActive", "minutesVeryActive"},
		path:         timeSeriesPath,
		maxRangeDays: 1095,
	},
	KindHeart: {
		path: func(_, start, end string) string {
			return fmt.Sprintf("/1/user/-/activities/heart/date/%s/%s.json", start, end)
		},
		maxRangeDays: 365,
	},
	KindSleep: {
		path: func(_, start, end string) string {
			return fmt.Sprintf("/1.2/user/-/sleep/date/%s/%s.json", start, end)
		},
		maxRangeDays: 100,
	},
	KindWeight: {
		path: func(_, start, end string) string {
			return fmt.Sprintf("/1/user/-/body/log/weight/date/%s/%s.json", start, end)
		},
		maxRangeDays: 31,
	},
	KindExercise: {
		path: func(_, start, _ string) string {
			q := url.Values{}
			q.Set("afterDate", start)
			q.Set("sort", "asc")
			q.Set("offset", "0")
			q.Set("limit", "100")
			return "/1/user/-/activities/list.json?" + q.Encode()
		},
		paginated: true,
	},
	KindDevices: {
		path: func(_, _, _ string) string { return "/1/user/-/devices.json" },
	},
}

// Kinds returns every supported kind, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(resources))
	for k := range resources {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := resources[k]; !ok {
		return "", fmt.Errorf("unsupported resource kind %q", s)
	}
	return k, nil
}

// MaxRangeDays returns the largest inclusive date span one request for kind
// may cover. Zero means the kind is either not date ranged or unbounded
// (paginated).
func MaxRangeDays(kind Kind) int {
	return resources[kind].maxRangeDays
}

// IsDated reports whether requests for kind carry a date range. Devices
// only report their current state.
func IsDated(kind Kind) bool {
	return kind != KindDevices
}

// Request describes one API call. It is an immutable value.
type Request struct {
	Kind   Kind
	Series string
	Start  time.Time
	End    time.Time
	// Cursor is the upstream "next" link of a paginated listing.
	Cursor string
}

// RequestsFor returns the requests that fetch kind over [start, end].
func RequestsFor(kind Kind, start, end time.Time) []Request {
	res, ok := resources[kind]
	if !ok {
		return nil
	}
	if len(res.series) == 0 {
		return []Request{{Kind: kind, Start: start, End: end}}
	}
	reqs := make([]Request, len(res.series))
	for i, s := range res.series {
		reqs[i] = Request{Kind: kind, Series: s, Start: start, End: end}
	}
	return reqs
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	res, ok := resources[r.Kind]
	if !ok {
		return fmt.Errorf("unsupported resource kind %q", r.Kind)
	}
	if len(res.series) > 0 {
		found := false
		for _, s := range res.series {
			if s == r.Series {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("resource %s has no series %q", r.Kind, r.Series)
		}
	}
	if !IsDated(r.Kind) {
		return nil
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("resource %s requires a date range", r.Kind)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end date %s before start date %s", r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	if res.maxRangeDays > 0 && DaysInclusive(r.Start, r.End) > res.maxRangeDays {
		return fmt.Errorf("resource %s allows at most %d days per request", r.Kind, res.maxRangeDays)
	}
	return nil
}

// Path returns the request path and query relative to the API base URL.
func (r Request) Path() string {
	res := resources[r.Kind]
	return res.path(r.Series, r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// Label names the request in logs and metrics.
func (r Request) Label() string {
	if r.Series != "" && r.Series != string(r.Kind) {
		return string(r.Kind) + "/" + r.Series
	}
	return string(r.Kind)
}

// RequestsPerDay is the number of requests needed to fetch one day of
// kinds, ignoring additional pages of paginated listings.
func RequestsPerDay(kinds []Kind) int {
	n := 0
	for _, k := range kinds {
		res, ok := resources[k]
		if !ok {
			continue
		}
		n += max(len(res.series), 1)
	}
	return n
}

// DaysInclusive counts calendar days in [start, end].
func DaysInclusive(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}
