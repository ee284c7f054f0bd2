// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package fitbit is a typed client for the Fitbit Web API.

The client only fetches raw JSON; turning payloads into metric samples is the
job of the mapper package. What this package owns is everything between a
Request and the bytes of a successful response:

  - a bearer token from the credential manager, refreshed once on HTTP 401
  - the per-user request budget (Fitbit allows 150 requests per hour)
  - a circuit breaker that stops hammering an API that keeps failing
  - classification of failures into *FetchError kinds
  - retries with exponential backoff that honour Retry-After
  - lazy pagination for list endpoints

# Resources

Each supported Kind maps to one Fitbit endpoint with its own maximum date
range per request. RequestsFor splits one kind into its requests (the active
minutes kind needs one request per intensity series), and MaxRangeDays tells
the backfill driver how large its chunks may be.

# Errors

Fetch and FetchAll return:

  - *FetchError with Kind RateLimited or ServerError after retries ran out
  - *FetchError with Kind BadRequest or Unauthorized, never retried
  - an auth.ErrUnrecoverable error when the credential is dead
  - ErrCircuitOpen while the breaker rejects calls
  - the context error on cancellation
*/
package fitbit
