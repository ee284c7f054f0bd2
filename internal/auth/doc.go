// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

/*
Package auth manages the Fitbit OAuth2 credential.

The Manager owns the access/refresh token pair. Every upstream request asks
it for a token through GetValidToken; the Manager returns the cached token
while it is valid for at least the configured safety margin and refreshes it
otherwise.

# Single-Flight Refresh

Fitbit invalidates a refresh token the moment it is redeemed. If two callers
refreshed concurrently, the second would present an already-used token and
the credential would be revoked. The Manager therefore funnels every refresh
through one singleflight.Group: the first caller performs the refresh, the
others wait for its result. The refresh runs on a context detached from the
caller's cancellation, bounded by its own timeout, so an impatient caller
cannot abort a refresh that others depend on.

# Failure Classification

Refresh failures are reported as *Error with one of two kinds:

  - KindTransient: network errors, HTTP 429 and 5xx. Callers retry with backoff.
  - KindUnrecoverable: the refresh token was rejected (invalid_grant,
    invalid_client, HTTP 400/401). The Manager latches this state, never
    contacts the token endpoint again and reports itself unhealthy.

Both kinds match the sentinels ErrTransient and ErrUnrecoverable with
errors.Is.

# Persistence

By default nothing is written to disk and a restart re-authenticates from the
configured refresh token. Because Fitbit rotates refresh tokens, an optional
TokenStore can persist the latest pair; BadgerTokenStore keeps it in a
BadgerDB directory encrypted with AES-256-GCM.
*/
package auth
