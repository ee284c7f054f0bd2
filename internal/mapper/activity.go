// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// seriesEntry is one day of an activity time series.
type seriesEntry struct {
	DateTime string          `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
}

// intensities maps active-minutes series to the intensity label.
var intensities = map[string]string{
	"minutesSedentary":     "sedentary",
	"minutesLightlyActive": "lightly_active",
	"minutesFairlyActive":  "fairly_active",
	"minutesVeryActive":    "very_active",
}

func (b *builder) timeSeries(kind fitbit.Kind, rec fitbit.RawRecord) error {
	metric, scale := "", 1.0
	switch kind {
	case fitbit.KindSteps:
		metric = MetricSteps
	case fitbit.KindDistance:
		metric, scale = MetricDistance, b.units.distance
	case fitbit.KindFloors:
		metric = MetricFloors
	case fitbit.KindElevation:
		metric, scale = MetricElevation, b.units.elevation
	case fitbit.KindCalories:
		metric = MetricCalories
	}

	key := "activities-" + string(kind)
	entries, err := seriesEntries(rec, key)
	if err != nil {
		return err
	}
	for i, e := range entries {
		d, ok := b.day(fmt.Sprintf("%s[%d].dateTime", key, i), e.DateTime)
		if !ok {
			continue
		}
		labels := models.NewLabels("date", d.Format(fitbit.DateLayout))
		b.number(metric, e.Value, scale, d, labels, fmt.Sprintf("%s[%d].value", key, i))
	}
	return nil
}

func (b *builder) activeMinutes(rec fitbit.RawRecord) error {
	series := b.rc.Series
	if series == "" {
		var err error
		if series, err = detectSeries(rec, "activities-minutes"); err != nil {
			return err
		}
	}
	intensity, ok := intensities[series]
	if !ok {
		return fmt.Errorf("unknown active minutes series %q", series)
	}

	key := "activities-" + series
	entries, err := seriesEntries(rec, key)
	if err != nil {
		return err
	}
	for i, e := range entries {
		d, ok := b.day(fmt.Sprintf("%s[%d].dateTime", key, i), e.DateTime)
		if !ok {
			continue
		}
		labels := models.NewLabels("date", d.Format(fitbit.DateLayout), "intensity", intensity)
		b.number(MetricActiveMinutes, e.Value, 1, d, labels, fmt.Sprintf("%s[%d].value", key, i))
	}
	return nil
}

// heartDay is one day of the heart rate time series.
type heartDay struct {
	DateTime string `json:"dateTime"`
	Value    struct {
		RestingHeartRate json.RawMessage `json:"restingHeartRate"`
		HeartRateZones   []struct {
			Name        string          `json:"name"`
			Minutes     json.RawMessage `json:"minutes"`
			CaloriesOut json.RawMessage `json:"caloriesOut"`
		} `json:"heartRateZones"`
	} `json:"value"`
}

func (b *builder) heart(rec fitbit.RawRecord) error {
	var body struct {
		Days *[]heartDay `json:"activities-heart"`
	}
	if err := decodeObject(rec, &body); err != nil {
		return err
	}
	if body.Days == nil {
		return fmt.Errorf("missing %q", "activities-heart")
	}

	for i, day := range *body.Days {
		d, ok := b.day(fmt.Sprintf("activities-heart[%d].dateTime", i), day.DateTime)
		if !ok {
			continue
		}
		date := d.Format(fitbit.DateLayout)
		b.number(MetricRestingHeartRate, day.Value.RestingHeartRate, 1, d,
			models.NewLabels("date", date), fmt.Sprintf("activities-heart[%d].value.restingHeartRate", i))

		for j, zone := range day.Value.HeartRateZones {
			if zone.Name == "" {
				continue
			}
			labels := models.NewLabels("date", date, "zone", labelValue(zone.Name))
			field := fmt.Sprintf("activities-heart[%d].value.heartRateZones[%d]", i, j)
			b.number(MetricHeartZoneMinutes, zone.Minutes, 1, d, labels, field+".minutes")
			b.number(MetricHeartZoneCalories, zone.CaloriesOut, 1, d, labels, field+".caloriesOut")
		}
	}
	return nil
}

// seriesEntries decodes the array under key. The key must be present;
// an explicit null is an empty series.
func seriesEntries(rec fitbit.RawRecord, key string) ([]seriesEntry, error) {
	var body map[string]json.RawMessage
	if err := decodeObject(rec, &body); err != nil {
		return nil, err
	}
	raw, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	if bytes.Equal(bytes.TrimSpace(raw), null) {
		return nil, nil
	}
	var entries []seriesEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return entries, nil
}

// detectSeries finds the single series key starting with prefix.
func detectSeries(rec fitbit.RawRecord, prefix string) (string, error) {
	var body map[string]json.RawMessage
	if err := decodeObject(rec, &body); err != nil {
		return "", err
	}
	var found []string
	for key := range body {
		if strings.HasPrefix(key, prefix) {
			found = append(found, strings.TrimPrefix(key, "activities-"))
		}
	}
	if len(found) != 1 {
		sort.Strings(found)
		return "", fmt.Errorf("expected one %s* series, found %v", prefix, found)
	}
	return found[0], nil
}

// labelValue turns display names like "Fat Burn" into "fat_burn".
func labelValue(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}
