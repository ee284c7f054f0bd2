// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"strings"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRequestsFor(t *testing.T) {
	t.Parallel()

	reqs := RequestsFor(KindActiveMinutes, day("2024-03-01"), day("2024-03-01"))
	if len(reqs) != 4 {
		t.Fatalf("expected one request per intensity, got %d", len(reqs))
	}
	if reqs[0].Series != "minutesSedentary" || reqs[3].Series != "minutesVeryActive" {
		t.Errorf("unexpected series order: %+v", reqs)
	}

	if reqs := RequestsFor(KindSleep, day("2024-03-01"), day("2024-03-02")); len(reqs) != 1 || reqs[0].Series != "" {
		t.Errorf("sleep should be a single request without series, got %+v", reqs)
	}
	if reqs := RequestsFor(Kind("nope"), day("2024-03-01"), day("2024-03-02")); reqs != nil {
		t.Errorf("unknown kind should yield no requests, got %+v", reqs)
	}
}

func TestRequest_Path(t *testing.T) {
	t.Parallel()

	tests := []struct {
		req  Request
		want string
	}{
		{Request{Kind: KindSteps, Series: "steps", Start: day("2024-03-01"), End: day("2024-03-07")}, "/1/user/-/activities/steps/date/2024-03-01/2024-03-07.json"},
		{Request{Kind: KindActiveMinutes, Series: "minutesVeryActive", Start: day("2024-03-01"), End: day("2024-03-01")}, "/1/user/-/activities/minutesVeryActive/date/2024-03-01/2024-03-01.json"},
		{Request{Kind: KindHeart, Start: day("2024-03-01"), End: day("2024-03-02")}, "/1/user/-/activities/heart/date/2024-03-01/2024-03-02.json"},
		{Request{Kind: KindSleep, Start: day("2024-03-01"), End: day("2024-03-02")}, "/1.2/user/-/sleep/date/2024-03-01/2024-03-02.json"},
		{Request{Kind: KindWeight, Start: day("2024-03-01"), End: day("2024-03-31")}, "/1/user/-/body/log/weight/date/2024-03-01/2024-03-31.json"},
		{Request{Kind: KindDevices}, "/1/user/-/devices.json"},
	}

	for _, tt := range tests {
		if got := tt.req.Path(); got != tt.want {
			t.Errorf("Path() = %s, want %s", got, tt.want)
		}
	}

	list := Request{Kind: KindExercise, Start: day("2024-03-01"), End: day("2024-03-05")}.Path()
	for _, part := range []string{"/1/user/-/activities/list.json?", "afterDate=2024-03-01", "sort=asc", "limit=100"} {
		if !strings.Contains(list, part) {
			t.Errorf("exercise path %s missing %s", list, part)
		}
	}
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid steps", Request{Kind: KindSteps, Series: "steps", Start: day("2024-03-01"), End: day("2024-03-01")}, false},
		{"unknown kind", Request{Kind: "mood", Start: day("2024-03-01"), End: day("2024-03-01")}, true},
		{"wrong series", Request{Kind: KindSteps, Series: "floors", Start: day("2024-03-01"), End: day("2024-03-01")}, true},
		{"missing dates", Request{Kind: KindSleep}, true},
		{"reversed", Request{Kind: KindSleep, Start: day("2024-03-02"), End: day("2024-03-01")}, true},
		{"weight over 31 days", Request{Kind: KindWeight, Start: day("2024-03-01"), End: day("2024-04-01")}, true},
		{"weight 31 days", Request{Kind: KindWeight, Start: day("2024-03-01"), End: day("2024-03-31")}, false},
		{"devices without dates", Request{Kind: KindDevices}, false},
		{"exercise unbounded", Request{Kind: KindExercise, Start: day("2020-01-01"), End: day("2024-03-01")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDaysInclusive(t *testing.T) {
	t.Parallel()

	if got := DaysInclusive(day("2024-03-01"), day("2024-03-01")); got != 1 {
		t.Errorf("same day = %d, want 1", got)
	}
	if got := DaysInclusive(day("2024-02-28"), day("2024-03-01")); got != 3 {
		t.Errorf("leap span = %d, want 3", got)
	}
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Crosses the spring DST switch; still 2 calendar days.
	s := time.Date(2024, 3, 30, 0, 0, 0, 0, berlin)
	e := time.Date(2024, 3, 31, 0, 0, 0, 0, berlin)
	if got := DaysInclusive(s, e); got != 2 {
		t.Errorf("DST span = %d, want 2", got)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		if got, err := ParseKind(string(k)); err != nil || got != k {
			t.Errorf("ParseKind(%s) = %s, %v", k, got, err)
		}
	}
	if _, err := ParseKind("mood"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
