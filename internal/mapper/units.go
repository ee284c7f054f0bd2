// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

import "strings"

// Conversion factors to SI units.
const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.344
	metersPerFoot      = 0.3048
	kilogramsPerPound  = 0.45359237
	kilogramsPerStone  = 6.35029318
)

// Unit systems accepted by Fitbit as Accept-Language.
const (
	UnitSystemMetric = "metric"
	UnitSystemUS     = "en_US"
	UnitSystemUK     = "en_GB"
)

// units holds multipliers from the payload's units to meters and kilograms.
type units struct {
	distance  float64
	elevation float64
	weight    float64
}

// unitsFor returns the multipliers for a unit system. Anything unknown is
// treated as metric, which is what Fitbit does without Accept-Language.
func unitsFor(system string) units {
	switch system {
	case UnitSystemUS:
		return units{distance: metersPerMile, elevation: metersPerFoot, weight: kilogramsPerPound}
	case UnitSystemUK:
		return units{distance: metersPerKilometer, elevation: 1, weight: kilogramsPerStone}
	default:
		return units{distance: metersPerKilometer, elevation: 1, weight: 1}
	}
}

// distanceUnitFactor reads the distanceUnit of an activity log entry,
// falling back to the unit system when absent or unknown.
func distanceUnitFactor(unit string, fallback float64) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kilometer", "kilometers", "km":
		return metersPerKilometer
	case "mile", "miles", "mi":
		return metersPerMile
	case "meter", "meters", "m":
		return 1
	default:
		return fallback
	}
}
