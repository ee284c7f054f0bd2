// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/metrics"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

const (
	// DefaultSafetyMargin is how long before expiry a token is refreshed.
	DefaultSafetyMargin = 5 * time.Minute

	// DefaultRefreshTimeout bounds a single refresh request.
	DefaultRefreshTimeout = 30 * time.Second

	// DefaultTokenTTL is assumed when a refresh response carries neither
	// expires_in nor a JWT exp claim. It matches Fitbit's default lifetime.
	DefaultTokenTTL = 8 * time.Hour

	refreshKey = "refresh"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Refresher Refresher

	// Initial is the configured credential. Only RefreshToken is required;
	// when AccessToken is set without ExpiresAt its JWT exp claim is used.
	Initial Token

	// Store, when set, supplies a newer token at startup and receives every
	// rotated token.
	Store TokenStore

	SafetyMargin   time.Duration
	RefreshTimeout time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Manager owns the OAuth2 credential and serializes its refreshes.
type Manager struct {
	refresher      Refresher
	store          TokenStore
	margin         time.Duration
	refreshTimeout time.Duration
	now            func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	token   Token
	fatal   *Error
	lastErr error

	refreshes atomic.Int64
}

// NewManager creates a Manager. When a store is configured and holds a
// token, that token replaces cfg.Initial because the configured refresh
// token has most likely been rotated away already.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Refresher == nil {
		return nil, errors.New("auth: refresher is required")
	}

	m := &Manager{
		refresher:      cfg.Refresher,
		store:          cfg.Store,
		margin:         cfg.SafetyMargin,
		refreshTimeout: cfg.RefreshTimeout,
		now:            cfg.Clock,
		token:          cfg.Initial,
	}
	if m.margin <= 0 {
		m.margin = DefaultSafetyMargin
	}
	if m.refreshTimeout <= 0 {
		m.refreshTimeout = DefaultRefreshTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}

	if m.token.AccessToken != "" && m.token.ExpiresAt.IsZero() {
		if exp, ok := ExpiryFromJWT(m.token.AccessToken); ok {
			m.token.ExpiresAt = exp
		}
	}

	if m.store != nil {
		stored, ok, err := m.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored token: %w", err)
		}
		if ok && stored.RefreshToken != "" {
			logging.Info().
				Time("expires_at", stored.ExpiresAt).
				Msg("Using persisted Fitbit token")
			m.token = stored
		}
	}

	if m.token.RefreshToken == "" {
		return nil, errors.New("auth: refresh token is required")
	}

	metrics.SetCredentialsHealthy(true)
	if !m.token.ExpiresAt.IsZero() {
		metrics.TokenExpiry.Set(float64(m.token.ExpiresAt.Unix()))
	}
	return m, nil
}

// GetValidToken returns a token that is valid for at least the safety
// margin, refreshing it first if necessary. The returned token never has
// ExpiresAt <= now.
func (m *Manager) GetValidToken(ctx context.Context) (Token, error) {
	m.mu.RLock()
	tok, fatal := m.token, m.fatal
	m.mu.RUnlock()

	if fatal != nil {
		return Token{}, fatal
	}
	if tok.ValidAt(m.now(), m.margin) {
		return tok, nil
	}
	return m.refresh(ctx, "")
}

// ForceRefresh replaces an access token the API rejected with 401. When the
// credential has already rotated away from rejected, the current token is
// returned without contacting the token endpoint. Concurrent calls share one
// refresh.
func (m *Manager) ForceRefresh(ctx context.Context, rejected string) (Token, error) {
	if rejected == "" {
		return Token{}, errors.New("auth: rejected access token is required")
	}
	tok, err := m.refresh(ctx, rejected)
	if err != nil || tok.AccessToken != rejected {
		return tok, err
	}
	// Joined a flight started by GetValidToken that still considered the
	// rejected token valid.
	return m.refresh(ctx, rejected)
}

// refresh joins or starts the single refresh flight. An empty rejected
// token means the caller only needs a token that is valid by its expiry.
func (m *Manager) refresh(ctx context.Context, rejected string) (Token, error) {
	ch := m.group.DoChan(refreshKey, func() (interface{}, error) {
		return m.doRefresh(ctx, rejected)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, transientError("canceled", ctx.Err())
	}
}

// doRefresh runs inside the single flight.
func (m *Manager) doRefresh(ctx context.Context, rejected string) (Token, error) {
	m.mu.RLock()
	current, fatal := m.token, m.fatal
	m.mu.RUnlock()

	if fatal != nil {
		return Token{}, fatal
	}
	// A flight that finished just before this one may already have
	// produced a fresh token.
	if current.AccessToken != rejected && current.ValidAt(m.now(), m.margin) {
		return current, nil
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
	defer cancel()

	m.refreshes.Add(1)
	next, err := m.refresher.Refresh(rctx, current.RefreshToken)
	if err != nil {
		return Token{}, m.recordFailure(ctx, err)
	}

	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	now := m.now()
	if next.ExpiresAt.IsZero() && next.AccessToken != "" {
		next.ExpiresAt = now.Add(DefaultTokenTTL)
		logging.Ctx(ctx).Warn().
			Dur("assumed_ttl", DefaultTokenTTL).
			Msg("Refresh response carried no expiry")
	}

	// The old refresh token has been redeemed at this point. The rotated
	// one is kept even when the access token is unusable.
	if !next.ValidAt(now, 0) {
		m.commit(ctx, rctx, Token{RefreshToken: next.RefreshToken})
		return Token{}, m.recordFailure(ctx, transientError("expired_on_arrival",
			fmt.Errorf("refreshed token expires at %s", next.ExpiresAt.Format(time.RFC3339))))
	}

	m.commit(ctx, rctx, next)
	metrics.RecordTokenRefresh("success", next.ExpiresAt)
	logging.Ctx(ctx).Info().
		Time("expires_at", next.ExpiresAt).
		Bool("forced", rejected != "").
		Msg("Refreshed Fitbit access token")
	return next, nil
}

// commit makes tok the current credential and persists it.
func (m *Manager) commit(ctx, storeCtx context.Context, tok Token) {
	m.mu.Lock()
	m.token = tok
	m.lastErr = nil
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(storeCtx, tok); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}
}

func (m *Manager) recordFailure(ctx context.Context, err error) error {
	var authErr *Error
	if !errors.As(err, &authErr) {
		authErr = transientError("", err)
	}

	m.mu.Lock()
	m.lastErr = authErr
	if authErr.Kind == KindUnrecoverable {
		m.fatal = authErr
	}
	m.mu.Unlock()

	metrics.RecordTokenRefresh(authErr.Kind.String(), time.Time{})
	if authErr.Kind == KindUnrecoverable {
		metrics.SetCredentialsHealthy(false)
		logging.Ctx(ctx).Error().Err(authErr).Msg("Fitbit refresh token rejected; re-authorization required")
	} else {
		logging.Ctx(ctx).Warn().Err(authErr).Msg("Token refresh failed, will retry")
	}
	return authErr
}

// Healthy reports false once the credential has been rejected permanently.
func (m *Manager) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fatal == nil
}

// Refreshes returns the number of refresh requests sent to the token endpoint.
func (m *Manager) Refreshes() int64 {
	return m.refreshes.Load()
}

// Status summarizes the credential without exposing it.
func (m *Manager) Status() models.CredentialStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := models.CredentialStatus{
		Healthy:   m.fatal == nil,
		Refreshes: m.refreshes.Load(),
	}
	if !m.token.ExpiresAt.IsZero() {
		exp := m.token.ExpiresAt
		st.ExpiresAt = &exp
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}
