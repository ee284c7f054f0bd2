// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator that names fields by their
// json or koanf tag and translates failures into short messages and the
// API error envelope. It validates both the loaded configuration and the
// query parameters of the HTTP API.
//
// # Custom Tags
//
//   - fitbit_resource: the value is a resource kind the upstream client
//     supports (steps, heart, sleep, ...)
//
// # Quick Start
//
//	req := models.BackfillRequest{Start: q.Get("start"), End: q.Get("end")}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
package validation
