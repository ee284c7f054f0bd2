// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package fitbit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fitbit-exporter/internal/auth"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
)

const (
	// DefaultBaseURL is the Fitbit Web API root.
	DefaultBaseURL = "https://api.fitbit.com"

	// DefaultRequestsPerHour is Fitbit's per-user rate limit.
	DefaultRequestsPerHour = 150

	// maxErrorBodySize limits how much of an error response is read.
	maxErrorBodySize = 64 * 1024

	// maxBodySize limits a successful response. The largest payloads are
	// 1095-day time series, well below this.
	maxBodySize = 16 * 1024 * 1024
)

// RawRecord is the undecoded JSON body of one successful response.
type RawRecord []byte

// TokenSource supplies bearer tokens. *auth.Manager implements it.
type TokenSource interface {
	GetValidToken(ctx context.Context) (auth.Token, error)
	ForceRefresh(ctx context.Context, rejected string) (auth.Token, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string

	// UnitSystem selects the units Fitbit answers in: "metric" (default),
	// "en_US" or "en_GB". It is sent as Accept-Language.
	UnitSystem string

	Timeout time.Duration

	// RequestsPerHour is the request budget. Zero or negative disables
	// client-side limiting.
	RequestsPerHour int
	// RequestBurst is how many requests may be sent back to back.
	RequestBurst int
	// BackgroundRequestsPerHour caps requests made with a context marked by
	// WithBackground. They still count against RequestsPerHour, so the
	// difference stays available to foreground polling. Zero leaves
	// background requests bound by RequestsPerHour alone.
	BackgroundRequestsPerHour int

	Retry RetryPolicy

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Now overrides the clock used to interpret Retry-After dates.
	Now func() time.Time
}

// Client fetches raw Fitbit payloads. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	unitSystem string
	http       *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	background *rate.Limiter
	retry      RetryPolicy
	breaker    *breaker
	now        func() time.Time
}

// NewClient creates a client that authenticates through tokens.
func NewClient(cfg Config, tokens TokenSource) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("fitbit: token source is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("fitbit: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerHour > 0 {
		burst := cfg.RequestBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(perHour(cfg.RequestsPerHour), burst)
	}
	var background *rate.Limiter
	if cfg.BackgroundRequestsPerHour > 0 {
		background = rate.NewLimiter(perHour(cfg.BackgroundRequestsPerHour), 1)
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    base,
		unitSystem: cfg.UnitSystem,
		http:       httpClient,
		tokens:     tokens,
		limiter:    limiter,
		background: background,
		retry:      cfg.Retry,
		breaker:    newBreaker("fitbit-api"),
		now:        now,
	}, nil
}

// Fetch performs one request, retrying according to the client's policy.
//
// If Fitbit rejects the access token, the credential manager is asked for a
// forced refresh once and the request is repeated immediately; a second
// rejection is returned as an Unauthorized *FetchError.
func (c *Client) Fetch(ctx context.Context, req Request) (RawRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, &FetchError{Kind: BadRequest, Resource: req.Label(), Err: err}
	}

	label := req.Label()
	policy := c.retry
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.UpstreamRetries.WithLabelValues(string(req.Kind), retryReason(err)).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("resource", label).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Fitbit request failed, retrying")
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}

	refreshed := false
	var out RawRecord
	err := policy.Do(ctx, func(int) error {
		tok, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			return err
		}

		rec, err := c.attempt(ctx, req, tok)
		if errors.Is(err, ErrUnauthorized) && !refreshed {
			refreshed = true
			logging.Ctx(ctx).Info().Str("resource", label).Msg("Access token rejected, forcing refresh")
			if tok, err = c.tokens.ForceRefresh(ctx, tok.AccessToken); err != nil {
				return err
			}
			rec, err = c.attempt(ctx, req, tok)
		}
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// attempt sends a single HTTP request, honouring the budget and breaker.
func (c *Client) attempt(ctx context.Context, req Request, tok auth.Token) (RawRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.breaker.execute(func() (RawRecord, error) {
		return c.roundTrip(ctx, req, tok)
	})
}

// wait blocks until the request budget allows one more request. Background
// requests first take a token from their own, smaller budget.
func (c *Client) wait(ctx context.Context) error {
	if c.background != nil && IsBackground(ctx) {
		if err := waitLimiter(ctx, c.background); err != nil {
			return err
		}
	}
	return waitLimiter(ctx, c.limiter)
}

func waitLimiter(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("fitbit: rate limiter: %w", err)
	}
	return nil
}

func perHour(n int) rate.Limit {
	return rate.Limit(float64(n) / 3600)
}

func (c *Client) roundTrip(ctx context.Context, req Request, tok auth.Token) (RawRecord, error) {
	label := req.Label()
	target, err := c.resolve(req)
	if err != nil {
		return nil, &FetchError{Kind: BadRequest, Resource: label, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: BadRequest, Resource: label, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	httpReq.Header.Set("Accept", "application/json")
	if c.unitSystem != "" && c.unitSystem != "metric" {
		httpReq.Header.Set("Accept-Language", c.unitSystem)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.RecordUpstreamRequest(string(req.Kind), ServerError.String(), time.Since(start))
		return nil, &FetchError{Kind: ServerError, Resource: label, Err: err}
	}
	defer resp.Body.Close()

	metrics.RecordRateLimitRemaining(resp.Header.Get("Fitbit-Rate-Limit-Remaining"))

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			metrics.RecordUpstreamRequest(string(req.Kind), ServerError.String(), time.Since(start))
			return nil, &FetchError{Kind: ServerError, Resource: label, StatusCode: resp.StatusCode, Err: err}
		}
		metrics.RecordUpstreamRequest(string(req.Kind), "ok", time.Since(start))
		return RawRecord(body), nil
	}

	fe := c.classify(resp, label)
	metrics.RecordUpstreamRequest(string(req.Kind), fe.Kind.String(), time.Since(start))
	return nil, fe
}

// resolve builds the absolute URL. Pagination cursors are full URLs from
// Fitbit; only their path and query are kept so the bearer token is never
// sent to another host.
func (c *Client) resolve(req Request) (string, error) {
	rel := req.Path()
	if req.Cursor != "" {
		next, err := url.Parse(req.Cursor)
		if err != nil {
			return "", fmt.Errorf("invalid pagination cursor: %w", err)
		}
		rel = next.RequestURI()
	}
	ref, err := url.Parse(rel)
	if err != nil {
		return "", err
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + ref.Path
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

// errorEnvelope is Fitbit's error response body.
type errorEnvelope struct {
	Errors []struct {
		ErrorType string `json:"errorType"`
		FieldName string `json:"fieldName"`
		Message   string `json:"message"`
	} `json:"errors"`
}

func (c *Client) classify(resp *http.Response, label string) *FetchError {
	fe := &FetchError{Resource: label, StatusCode: resp.StatusCode}

	body := readBodyForError(resp.Body)
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && len(env.Errors) > 0 {
		fe.ErrorType = env.Errors[0].ErrorType
		fe.Message = env.Errors[0].Message
	} else if len(body) > 0 {
		fe.Message = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		fe.Kind = RateLimited
		fe.RetryAfter = parseRetryAfter(resp.Header, c.now())
	case resp.StatusCode == http.StatusUnauthorized:
		fe.Kind = Unauthorized
	case resp.StatusCode >= 500:
		fe.Kind = ServerError
		fe.RetryAfter = parseRetryAfter(resp.Header, c.now())
	default:
		fe.Kind = BadRequest
	}
	return fe
}

// parseRetryAfter reads Retry-After (delta seconds or HTTP date) and falls
// back to Fitbit-Rate-Limit-Reset (seconds until the window resets).
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if v := strings.TrimSpace(h.Get("Fitbit-Rate-Limit-Reset")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return nil
	}
	return body
}

func retryReason(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	if errors.Is(err, auth.ErrTransient) {
		return "token_refresh"
	}
	return "other"
}

// BreakerState reports the circuit breaker state for status output.
func (c *Client) BreakerState() string {
	return c.breaker.state().String()
}
