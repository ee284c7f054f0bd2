// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the process logger.
type Config struct {
	// Level is trace, debug, info, warn, error or disabled. Unknown names
	// log at info.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to every line.
	Caller bool

	// Version, if set, is attached to every line.
	Version string

	// Output defaults to os.Stderr.
	Output io.Writer
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // configuration errors are logged before Init runs
func init() {
	Init(Config{})
}

// Init replaces the process logger. It may be called again, for example
// once the configuration has been loaded.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	zc := zerolog.New(out).With().Timestamp()
	if cfg.Version != "" {
		zc = zc.Str("version", cfg.Version)
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	l := zc.Logger()
	global.Store(&l)
}

// ParseLevel maps a level name to zerolog. "warning" is accepted for warn;
// empty and unknown names give info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func current() *zerolog.Logger {
	return global.Load()
}

// With starts a child logger of the process logger.
func With() zerolog.Context {
	return current().With()
}

// Debug, Info, Warn and Error start an event on the process logger.
func Debug() *zerolog.Event { return current().Debug() }

func Info() *zerolog.Event { return current().Info() }

func Warn() *zerolog.Event { return current().Warn() }

func Error() *zerolog.Event { return current().Error() }

// Err logs at error level when err is non-nil and at info otherwise.
//
//	logging.Err(err).Msg("Token store close")
func Err(err error) *zerolog.Event { return current().Err(err) }
