// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is the OAuth2 credential pair used against the Fitbit API.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ValidAt reports whether the access token can be used at now while keeping
// at least margin before it expires. A token without an expiry is treated as
// expired.
func (t Token) ValidAt(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// ExpiryFromJWT reads the exp claim of a Fitbit access token without
// verifying its signature. Fitbit issues access tokens as JWTs; the
// signature can only be verified by Fitbit itself, but the expiry is enough
// to decide whether a configured token is still usable at startup.
func ExpiryFromJWT(accessToken string) (time.Time, bool) {
	if accessToken == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
