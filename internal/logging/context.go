// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey int

const (
	correlationKey ctxKey = iota
	requestKey
)

// GenerateCorrelationID returns a short random id for a poll cycle or a
// backfill run.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// ContextWithCorrelationID tags ctx with the id of the poll cycle or
// backfill run it belongs to.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// ContextWithNewCorrelationID tags ctx with a generated correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// ContextWithRequestID tags ctx with the id of an /api/v1 request.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestKey).(string)
	return id
}

// Ctx returns a logger carrying the correlation_id and request_id of ctx.
// A backfill started over the API logs both.
//
//	logging.Ctx(ctx).Info().Str("resource", "sleep").Msg("Mapped records")
func Ctx(ctx context.Context) *zerolog.Logger {
	zc := With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		zc = zc.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		zc = zc.Str("request_id", id)
	}
	l := zc.Logger()
	return &l
}
