// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fitbit-exporter/internal/fitbit"
	"github.com/tomtom215/fitbit-exporter/internal/models"
)

// device is one paired device.
type device struct {
	ID            string          `json:"id"`
	DeviceVersion string          `json:"deviceVersion"`
	Type          string          `json:"type"`
	BatteryLevel  json.RawMessage `json:"batteryLevel"`
	LastSyncTime  string          `json:"lastSyncTime"`
}

// devices maps the device listing. It describes current state, so samples
// are observed at the context's Now.
func (b *builder) devices(rec fitbit.RawRecord) error {
	trimmed := bytes.TrimSpace(rec)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return errors.New("expected a JSON array")
	}
	var list []device
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}

	for i, dev := range list {
		field := fmt.Sprintf("[%d]", i)
		if dev.ID == "" {
			b.malformed(field+".id", errors.New("missing device id"))
			continue
		}
		labels := models.NewLabels(
			"device_id", dev.ID,
			"device", dev.DeviceVersion,
			"type", strings.ToLower(dev.Type),
		)
		b.number(MetricDeviceBattery, dev.BatteryLevel, 1, b.rc.Now, labels, field+".batteryLevel")
		if t, ok := b.localTime(field+".lastSyncTime", dev.LastSyncTime); ok {
			b.value(MetricDeviceLastSync, float64(t.Unix()), b.rc.Now, labels)
		}
	}
	return nil
}
