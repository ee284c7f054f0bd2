// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseFlags_Defaults(t *testing.T) {
	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.dump || opts.showVersion {
		t.Errorf("unexpected mode flags: %+v", opts)
	}
	if opts.outputFile != DefaultOutputFile {
		t.Errorf("outputFile = %q, want %q", opts.outputFile, DefaultOutputFile)
	}
	if len(opts.overrides()) != 0 {
		t.Errorf("expected no overrides, got %v", opts.overrides())
	}
}

func TestParseFlags_DumpMode(t *testing.T) {
	opts, err := parseFlags([]string{"-d", "-s", "2024-01-01", "-e", "2024-06-30", "-o", "/tmp/out.prom", "--log-level", "debug", "-c", "/etc/fe.yaml"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if !opts.dump || opts.outputFile != "/tmp/out.prom" || opts.configPath != "/etc/fe.yaml" {
		t.Errorf("unexpected options %+v", opts)
	}

	want := map[string]interface{}{
		"backfill.start_date": "2024-01-01",
		"backfill.end_date":   "2024-06-30",
		"logging.level":       "debug",

		"fitbit.backfill_requests_per_hour": 0,
	}
	if got := opts.overrides(); !reflect.DeepEqual(got, want) {
		t.Errorf("overrides() = %v, want %v", got, want)
	}
}

func TestParseFlags_LongNames(t *testing.T) {
	opts, err := parseFlags([]string{"--dump-historical-metrics", "--start-date=2023-05-01", "--output-file=x.prom"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if !opts.dump || opts.startDate != "2023-05-01" || opts.outputFile != "x.prom" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"bad start date", []string{"-s", "01/02/2024"}, "--start-date must be a date"},
		{"bad end date", []string{"--end-date", "2024-13-01"}, "--end-date must be a date"},
		{"empty output", []string{"-o", ""}, "--output-file must not be empty"},
		{"positional args", []string{"serve"}, "unexpected arguments"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	if _, err := parseFlags([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("expected pflag.ErrHelp, got %v", err)
	}
}
