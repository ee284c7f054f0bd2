// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/fitbit-exporter/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct_BackfillRequest(t *testing.T) {
	tests := []struct {
		name      string
		input     models.BackfillRequest
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: models.BackfillRequest{Start: "2024-01-01", End: "2024-01-31"}},
		{
			name:      "missing start",
			input:     models.BackfillRequest{End: "2024-01-31"},
			wantField: "start",
			wantMsg:   "start is required",
		},
		{
			name:      "bad end layout",
			input:     models.BackfillRequest{Start: "2024-01-01", End: "31/01/2024"},
			wantField: "end",
			wantMsg:   "end must be a date in the 2006-01-02 layout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected a validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

type resourceList struct {
	Resources []string `koanf:"resources" validate:"min=1,dive,fitbit_resource"`
	Zone      string   `koanf:"timezone" validate:"required,timezone"`
	Count     int      `koanf:"count" validate:"gte=1,lte=10"`
	Mode      string   `koanf:"mode" validate:"oneof=metric en_US en_GB"`
}

func TestValidateStruct_CustomAndBuiltinTags(t *testing.T) {
	valid := resourceList{Resources: []string{"steps", "heart"}, Zone: "UTC", Count: 3, Mode: "metric"}
	if verr := ValidateStruct(&valid); verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}

	invalid := resourceList{Resources: []string{"steps", "mood"}, Zone: "Mars/Olympus", Count: 11, Mode: "imperial"}
	verr := ValidateStruct(&invalid)
	if verr == nil {
		t.Fatal("expected validation errors")
	}

	got := map[string]string{}
	for _, e := range verr.Errors() {
		got[e.Tag()] = e.Error()
	}
	want := map[string]string{
		"fitbit_resource": "resources[1] must be a supported Fitbit resource",
		"timezone":        "timezone must be a valid IANA time zone",
		"lte":             "count must be less than or equal to 10",
		"oneof":           "mode must be one of: metric en_US en_GB",
	}
	for tag, msg := range want {
		if got[tag] != msg {
			t.Errorf("%s: got %q, want %q", tag, got[tag], msg)
		}
	}
}

func TestValidateStruct_MinItems(t *testing.T) {
	verr := ValidateStruct(&resourceList{Zone: "UTC", Count: 1, Mode: "metric"})
	if verr == nil {
		t.Fatal("expected an error for an empty resource list")
	}
	if msg := verr.Errors()[0].Error(); msg != "resources must be at least 1 items" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&models.BackfillRequest{Start: "2024-01-01"})
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "end is required" {
		t.Errorf("unexpected single error %+v", apiErr)
	}
	if apiErr.Details["end"] != "end is required" {
		t.Errorf("details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&models.BackfillRequest{}).ToAPIError()
	if !strings.Contains(multi.Message, "start: start is required") ||
		!strings.Contains(multi.Message, "end: end is required") {
		t.Errorf("unexpected combined message %q", multi.Message)
	}
	if len(multi.Details) != 2 {
		t.Errorf("details = %v", multi.Details)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty message = %q", empty.Message)
	}
}
