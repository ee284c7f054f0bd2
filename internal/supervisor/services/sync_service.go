// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/fitbit-exporter/internal/logging"
)

// StartStopManager matches the lifecycle of *sync.Manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService runs the poll scheduler and backfill runner under supervision.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates a new sync service wrapper.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "fitbit-sync",
	}
}

// Serve implements suture.Service. It starts the manager, blocks until ctx
// is cancelled, then stops the manager and waits for its goroutines.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	logging.Debug().Str("service", s.name).Msg("Stopping sync manager")
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer. Suture uses it in log messages.
func (s *SyncService) String() string {
	return s.name
}
