// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// sleepLog is one entry of the v1.2 sleep log listing.
type sleepLog struct {
	DateOfSleep   string          `json:"dateOfSleep"`
	LogID         json.RawMessage `json:"logId"`
	StartTime     string          `json:"startTime"`
	EndTime       string          `json:"endTime"`
	IsMainSleep   *bool           `json:"isMainSleep"`
	Efficiency    json.RawMessage `json:"efficiency"`
	MinutesAsleep json.RawMessage `json:"minutesAsleep"`
	MinutesAwake  json.RawMessage `json:"minutesAwake"`
	TimeInBed     json.RawMessage `json:"timeInBed"`
	Levels        struct {
		// Summary keys are deep/light/rem/wake for stage logs and
		// asleep/restless/awake for classic logs.
		Summary map[string]struct {
			Minutes json.RawMessage `json:"minutes"`
		} `json:"summary"`
	} `json:"levels"`
}

func (b *builder) sleep(rec fitbit.RawRecord) error {
	var body struct {
		Sleep *[]sleepLog `json:"sleep"`
	}
	if err := decodeObject(rec, &body); err != nil {
		return err
	}
	if body.Sleep == nil {
		return fmt.Errorf("missing %q", "sleep")
	}

	for i, log := range *body.Sleep {
		field := fmt.Sprintf("sleep[%d]", i)
		d, ok := b.day(field+".dateOfSleep", log.DateOfSleep)
		if !ok {
			continue
		}
		logType := "unknown"
		if log.IsMainSleep != nil {
			logType = "nap"
			if *log.IsMainSleep {
				logType = "main"
			}
		}
		date := d.Format(fitbit.DateLayout)
		labels := models.NewLabels("date", date, "log_id", parseID(log.LogID), "type", logType)

		b.number(MetricSleepAsleep, log.MinutesAsleep, 1, d, labels, field+".minutesAsleep")
		b.number(MetricSleepAwake, log.MinutesAwake, 1, d, labels, field+".minutesAwake")
		b.number(MetricSleepInBed, log.TimeInBed, 1, d, labels, field+".timeInBed")
		b.number(MetricSleepEfficiency, log.Efficiency, 1, d, labels, field+".efficiency")

		if t, ok := b.localTime(field+".startTime", log.StartTime); ok {
			b.value(MetricSleepStart, float64(t.Unix()), d, labels)
		}
		if t, ok := b.localTime(field+".endTime", log.EndTime); ok {
			b.value(MetricSleepEnd, float64(t.Unix()), d, labels)
		}

		stages := make([]string, 0, len(log.Levels.Summary))
		for stage := range log.Levels.Summary {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		for _, stage := range stages {
			stageLabels := models.NewLabels("date", date, "log_id", parseID(log.LogID), "type", logType, "stage", stage)
			b.number(MetricSleepStageMinutes, log.Levels.Summary[stage].Minutes, 1, d, stageLabels,
				fmt.Sprintf("%s.levels.summary.%s.minutes", field, stage))
		}
	}
	return nil
}
