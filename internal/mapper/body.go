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

// weightLog is one entry of the body weight log listing.
type weightLog struct {
	Date   string          `json:"date"`
	LogID  json.RawMessage `json:"logId"`
	Source string          `json:"source"`
	Weight json.RawMessage `json:"weight"`
	BMI    json.RawMessage `json:"bmi"`
	Fat    json.RawMessage `json:"fat"`
}

func (b *builder) weight(rec fitbit.RawRecord) error {
	var body struct {
		Weight *[]weightLog `json:"weight"`
	}
	if err := decodeObject(rec, &body); err != nil {
		return err
	}
	if body.Weight == nil {
		return fmt.Errorf("missing %q", "weight")
	}

	for i, log := range *body.Weight {
		field := fmt.Sprintf("weight[%d]", i)
		d, ok := b.day(field+".date", log.Date)
		if !ok {
			continue
		}
		source := log.Source
		if source == "" {
			source = "unknown"
		}
		labels := models.NewLabels("date", d.Format(fitbit.DateLayout), "log_id", parseID(log.LogID), "source", labelValue(source))

		b.number(MetricBodyWeight, log.Weight, b.units.weight, d, labels, field+".weight")
		b.number(MetricBodyBMI, log.BMI, 1, d, labels, field+".bmi")
		b.number(MetricBodyFat, log.Fat, 1, d, labels, field+".fat")
	}
	return nil
}
