// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tags cover single fields; the checks below cover the rest.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateFitbit(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	return c.validateBackfill()
}

// validateFitbit validates the upstream endpoints and the request budget
func (c *Config) validateFitbit() error {
	if err := validateBaseURL(c.Fitbit.APIURL, "FITBIT_API_URL"); err != nil {
		return err
	}
	if err := validateEndpointURL(c.Fitbit.TokenURL, "FITBIT_TOKEN_URL"); err != nil {
		return err
	}
	if c.Fitbit.RequestsPerHour > 0 && c.Fitbit.BackfillRequests >= c.Fitbit.RequestsPerHour {
		return fmt.Errorf("FITBIT_BACKFILL_REQUESTS_PER_HOUR (%d) must be less than FITBIT_REQUESTS_PER_HOUR (%d)",
			c.Fitbit.BackfillRequests, c.Fitbit.RequestsPerHour)
	}
	return nil
}

// validateSync validates the retry schedule
func (c *Config) validateSync() error {
	if c.Sync.RetryMaxDelay > 0 && c.Sync.RetryDelay > c.Sync.RetryMaxDelay {
		return fmt.Errorf("SYNC_RETRY_DELAY (%v) must not exceed SYNC_RETRY_MAX_DELAY (%v)",
			c.Sync.RetryDelay, c.Sync.RetryMaxDelay)
	}
	return nil
}

// validateBackfill validates that explicit backfill dates form a range
func (c *Config) validateBackfill() error {
	if c.Backfill.StartDate == "" || c.Backfill.EndDate == "" {
		return nil
	}
	start, err := time.Parse(fitbit.DateLayout, c.Backfill.StartDate)
	if err != nil {
		return fmt.Errorf("BACKFILL_START_DATE: %w", err)
	}
	end, err := time.Parse(fitbit.DateLayout, c.Backfill.EndDate)
	if err != nil {
		return fmt.Errorf("BACKFILL_END_DATE: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("BACKFILL_START_DATE (%s) must not be after BACKFILL_END_DATE (%s)",
			c.Backfill.StartDate, c.Backfill.EndDate)
	}
	return nil
}
