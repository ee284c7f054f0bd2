// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	// DefaultTokenURL is Fitbit's OAuth2 token endpoint.
	DefaultTokenURL = "https://api.fitbit.com/oauth2/token"

	// DefaultAuthURL is Fitbit's authorization page. It is only needed to
	// obtain the very first refresh token, which happens outside the exporter.
	DefaultAuthURL = "https://www.fitbit.com/oauth2/authorize"
)

// Refresher redeems a refresh token for a new token pair.
//
// Implementations must return *Error so that callers can tell transient
// failures from a revoked credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}

// OAuth2Refresher performs the refresh_token grant against Fitbit.
type OAuth2Refresher struct {
	config     oauth2.Config
	httpClient *http.Client
}

// NewOAuth2Refresher creates a refresher for the given client credentials.
// Fitbit requires the client id and secret in an HTTP Basic header.
func NewOAuth2Refresher(clientID, clientSecret, tokenURL string, httpClient *http.Client) *OAuth2Refresher {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuth2Refresher{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultAuthURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// Refresh implements Refresher.
func (r *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	if refreshToken == "" {
		return Token{}, unrecoverableError("", errNoRefreshToken)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Token{}, classifyRefreshError(ctx, err)
	}

	next := Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if next.ExpiresAt.IsZero() {
		if exp, ok := ExpiryFromJWT(next.AccessToken); ok {
			next.ExpiresAt = exp
		}
	}
	return next, nil
}

// fitbitErrorBody is the error envelope Fitbit uses instead of the RFC 6749
// "error" field.
type fitbitErrorBody struct {
	Errors []struct {
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
	} `json:"errors"`
}

// unrecoverableCodes are OAuth2 error codes meaning the refresh token or the
// client registration will never work again.
var unrecoverableCodes = map[string]bool{
	"invalid_grant":       true,
	"invalid_client":      true,
	"unauthorized_client": true,
	"invalid_request":     true,
	"invalid_token":       true,
}

func classifyRefreshError(ctx context.Context, err error) *Error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		// Transport failure or cancellation.
		if ctx.Err() != nil {
			return transientError("timeout", err)
		}
		return transientError("network", err)
	}

	reason := re.ErrorCode
	if reason == "" && len(re.Body) > 0 {
		var body fitbitErrorBody
		if json.Unmarshal(re.Body, &body) == nil && len(body.Errors) > 0 {
			reason = body.Errors[0].ErrorType
		}
	}

	if unrecoverableCodes[reason] {
		return unrecoverableError(reason, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return transientError(reason, err)
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return unrecoverableError(reason, err)
	default:
		return transientError(reason, err)
	}
}
