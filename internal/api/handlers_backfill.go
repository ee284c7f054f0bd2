// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/logging"
	"github.com/tomtom215/fitbit-exporter/internal/models"
	"github.com/tomtom215/fitbit-exporter/internal/sync"
)

// StartBackfill starts an on-demand backfill over the inclusive date range
// given by the start and end query parameters.
//
// Responses:
//   - 202 with the run id when the backfill was started
//   - 400 when the range is malformed, reversed, ends after today or is
//     longer than the configured maximum
//   - 409 when a backfill is already running
func (h *Handler) StartBackfill(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.BackfillRequest{
		Start: q.Get("start"),
		End:   q.Get("end"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	start, err := time.ParseInLocation(fitbit.DateLayout, req.Start, h.loc)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "start must be a date in the 2006-01-02 layout", nil)
		return
	}
	end, err := time.ParseInLocation(fitbit.DateLayout, req.End, h.loc)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "end must be a date in the 2006-01-02 layout", nil)
		return
	}
	if end.Before(start) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "start must not be after end", nil)
		return
	}
	local := h.now().In(h.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.loc)
	if end.After(today) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("end must not be after today (%s)", today.Format(fitbit.DateLayout)), nil)
		return
	}
	if h.maxBackfillDays > 0 && fitbit.DaysInclusive(start, end) > h.maxBackfillDays {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("range must not exceed %d days", h.maxBackfillDays), nil)
		return
	}

	runID, err := h.sync.StartBackfill(start, end)
	switch {
	case errors.Is(err, sync.ErrBackfillRunning):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "A backfill is already running", nil)
		return
	case errors.Is(err, sync.ErrInvalidRange):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "start must not be after end", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to start backfill", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("run_id", runID).
		Str("start", req.Start).
		Str("end", req.End).
		Msg("On-demand backfill started")

	respondSuccess(w, r, http.StatusAccepted, models.BackfillAccepted{
		RunID: runID,
		Start: req.Start,
		End:   req.End,
	})
}

// BackfillReport returns the running or most recent backfill report.
func (h *Handler) BackfillReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.sync.LastBackfill()
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No backfill has run yet", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, report)
}
