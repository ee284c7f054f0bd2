// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
)

// DefaultOutputFile is where dump mode writes unless -o is given.
const DefaultOutputFile = "fitbit_historical_metrics.prom"

// options are the command-line flags.
type options struct {
	configPath  string
	dump        bool
	startDate   string
	endDate     string
	outputFile  string
	logLevel    string
	showVersion bool
}

// parseFlags parses args (without the program name).
func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("fitbit-exporter", pflag.ContinueOnError)

	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (overrides CONFIG_PATH)")
	fs.BoolVarP(&opts.dump, "dump-historical-metrics", "d", false, "backfill the date range, write it to --output-file and exit")
	fs.StringVarP(&opts.startDate, "start-date", "s", "", "first day to backfill, YYYY-MM-DD (default: one year before --end-date)")
	fs.StringVarP(&opts.endDate, "end-date", "e", "", "last day to backfill, YYYY-MM-DD (default: yesterday)")
	fs.StringVarP(&opts.outputFile, "output-file", "o", DefaultOutputFile, "dump mode output file")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	for name, value := range map[string]string{"start-date": opts.startDate, "end-date": opts.endDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(fitbit.DateLayout, value); err != nil {
			return nil, fmt.Errorf("--%s must be a date in the %s layout: %q", name, fitbit.DateLayout, value)
		}
	}
	if opts.outputFile == "" {
		return nil, fmt.Errorf("--output-file must not be empty")
	}
	return opts, nil
}

// overrides maps set flags onto koanf paths. They take precedence over the
// config file and environment.
func (o *options) overrides() map[string]interface{} {
	out := make(map[string]interface{})
	if o.startDate != "" {
		out["backfill.start_date"] = o.startDate
	}
	if o.endDate != "" {
		out["backfill.end_date"] = o.endDate
	}
	if o.logLevel != "" {
		out["logging.level"] = o.logLevel
	}
	if o.dump {
		// Nothing polls in dump mode.
		out["fitbit.backfill_requests_per_hour"] = 0
	}
	return out
}
