// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tomtom215/fitbit-exporter/internal/config"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code.
func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.showVersion {
		fmt.Println(version)
		return 0
	}
	if opts.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, opts.configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	cfg, err := config.LoadWithKoanf(opts.overrides())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Caller:  cfg.Logging.Caller,
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer a.Close()

	if opts.dump {
		if err := a.dump(ctx, opts.outputFile); err != nil {
			logging.Error().Err(err).Msg("Dump failed")
			return 1
		}
		return 0
	}

	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Strs("resources", cfg.Sync.Resources).
		Str("timezone", cfg.Sync.Timezone).
		Bool("startup_backfill", cfg.Backfill.Enabled).
		Msg("Starting fitbit-exporter")

	if err := a.serve(ctx); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
		return 1
	}
	logging.Info().Msg("Application stopped gracefully")
	return 0
}
