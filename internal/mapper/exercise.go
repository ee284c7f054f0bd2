// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// activityLog is one entry of the activity log listing.
type activityLog struct {
	LogID            json.RawMessage `json:"logId"`
	ActivityName     string          `json:"activityName"`
	StartTime        string          `json:"startTime"`
	ActiveDuration   json.RawMessage `json:"activeDuration"`
	Duration         json.RawMessage `json:"duration"`
	Calories         json.RawMessage `json:"calories"`
	Steps            json.RawMessage `json:"steps"`
	AverageHeartRate json.RawMessage `json:"averageHeartRate"`
	Distance         json.RawMessage `json:"distance"`
	DistanceUnit     string          `json:"distanceUnit"`
}

// exercise maps one page of the activity log listing. Listings are
// requested by start date only, so entries outside the context window are
// dropped here.
func (b *builder) exercise(rec fitbit.RawRecord) error {
	var body struct {
		Activities *[]activityLog `json:"activities"`
	}
	if err := decodeObject(rec, &body); err != nil {
		return err
	}
	if body.Activities == nil {
		return fmt.Errorf("missing %q", "activities")
	}

	for i, log := range *body.Activities {
		field := fmt.Sprintf("activities[%d]", i)
		if len(log.StartTime) < len(fitbit.DateLayout) {
			b.malformed(field+".startTime", fmt.Errorf("unrecognized timestamp %q", log.StartTime))
			continue
		}
		// The wall-clock date of the start, in whatever offset Fitbit used.
		d, ok := b.day(field+".startTime", log.StartTime[:len(fitbit.DateLayout)])
		if !ok || !b.inWindow(d) {
			continue
		}
		name := log.ActivityName
		if name == "" {
			name = "unknown"
		}
		labels := models.NewLabels("date", d.Format(fitbit.DateLayout), "log_id", parseID(log.LogID), "activity", labelValue(name))

		duration := log.ActiveDuration
		if _, ok, _ := parseNumber(duration); !ok {
			duration = log.Duration
		}
		b.number(MetricExerciseDuration, duration, 0.001, d, labels, field+".activeDuration")
		b.number(MetricExerciseCalories, log.Calories, 1, d, labels, field+".calories")
		b.number(MetricExerciseSteps, log.Steps, 1, d, labels, field+".steps")
		b.number(MetricExerciseHeartRate, log.AverageHeartRate, 1, d, labels, field+".averageHeartRate")
		b.number(MetricExerciseDistance, log.Distance, distanceUnitFactor(log.DistanceUnit, b.units.distance), d, labels, field+".distance")
	}
	return nil
}
