// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package mapper

// Metric names emitted by Map.
const (
	MetricSteps     = "fitbit_steps"
	MetricDistance  = "fitbit_distance_meters"
	MetricFloors    = "fitbit_floors"
	MetricElevation = "fitbit_elevation_meters"
	MetricCalories  = "fitbit_calories_burned"

	MetricActiveMinutes = "fitbit_active_minutes"

	MetricRestingHeartRate  = "fitbit_resting_heart_rate_bpm"
	MetricHeartZoneMinutes  = "fitbit_heart_rate_zone_minutes"
	MetricHeartZoneCalories = "fitbit_heart_rate_zone_calories"

	MetricSleepStageMinutes = "fitbit_sleep_stage_minutes"
	MetricSleepAsleep       = "fitbit_sleep_minutes_asleep"
	MetricSleepAwake        = "fitbit_sleep_minutes_awake"
	MetricSleepInBed        = "fitbit_sleep_time_in_bed_minutes"
	MetricSleepEfficiency   = "fitbit_sleep_efficiency_percent"
	MetricSleepStart        = "fitbit_sleep_start_timestamp_seconds"
	MetricSleepEnd          = "fitbit_sleep_end_timestamp_seconds"

	MetricBodyWeight = "fitbit_body_weight_kilograms"
	MetricBodyBMI    = "fitbit_body_bmi"
	MetricBodyFat    = "fitbit_body_fat_percent"

	MetricExerciseDuration  = "fitbit_exercise_duration_seconds"
	MetricExerciseCalories  = "fitbit_exercise_calories"
	MetricExerciseSteps     = "fitbit_exercise_steps"
	MetricExerciseHeartRate = "fitbit_exercise_average_heart_rate_bpm"
	MetricExerciseDistance  = "fitbit_exercise_distance_meters"

	MetricDeviceBattery  = "fitbit_device_battery_level_percent"
	MetricDeviceLastSync = "fitbit_device_last_sync_timestamp_seconds"
)

var help = map[string]string{
	MetricSteps:     "Number of steps taken on the day.",
	MetricDistance:  "Distance covered on the day in meters.",
	MetricFloors:    "Number of floors climbed on the day.",
	MetricElevation: "Elevation climbed on the day in meters.",
	MetricCalories:  "Calories burned on the day.",

	MetricActiveMinutes: "Minutes spent at the given activity intensity on the day.",

	MetricRestingHeartRate:  "Resting heart rate of the day in beats per minute.",
	MetricHeartZoneMinutes:  "Minutes spent in the heart rate zone on the day.",
	MetricHeartZoneCalories: "Calories burned in the heart rate zone on the day.",

	MetricSleepStageMinutes: "Minutes spent in the sleep stage during the sleep log.",
	MetricSleepAsleep:       "Minutes asleep during the sleep log.",
	MetricSleepAwake:        "Minutes awake during the sleep log.",
	MetricSleepInBed:        "Minutes in bed during the sleep log.",
	MetricSleepEfficiency:   "Sleep efficiency of the sleep log in percent.",
	MetricSleepStart:        "Start of the sleep log as a Unix timestamp.",
	MetricSleepEnd:          "End of the sleep log as a Unix timestamp.",

	MetricBodyWeight: "Logged body weight in kilograms.",
	MetricBodyBMI:    "Logged body mass index.",
	MetricBodyFat:    "Logged body fat in percent.",

	MetricExerciseDuration:  "Active duration of the exercise in seconds.",
	MetricExerciseCalories:  "Calories burned during the exercise.",
	MetricExerciseSteps:     "Steps taken during the exercise.",
	MetricExerciseHeartRate: "Average heart rate during the exercise in beats per minute.",
	MetricExerciseDistance:  "Distance covered during the exercise in meters.",

	MetricDeviceBattery:  "Battery level of the device in percent.",
	MetricDeviceLastSync: "Last time the device synced as a Unix timestamp.",
}

// Help returns the description of a metric emitted by Map, or a generic
// text for unknown names.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return "Fitbit metric " + name + "."
}
