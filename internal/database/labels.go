// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package database

// SeasonLabel maps the dataset's season code to a display name
func SeasonLabel(season int) string {
	switch season {
	case 1:
		return "Spring"
	case 2:
		return "Summer"
	case 3:
		return "Fall"
	case 4:
		return "Winter"
	default:
		return "Unknown"
	}
}

// WeatherLabel maps the dataset's weathersit code to a display name
func WeatherLabel(condition int) string {
	switch condition {
	case 1:
		return "Clear/Few clouds"
	case 2:
		return "Mist/Cloudy"
	case 3:
		return "Light Snow/Rain"
	case 4:
		return "Heavy Rain/Snow"
	default:
		return "Unknown"
	}
}

// humidityBandLabels name the humidity quintile bands from driest to wettest
var humidityBandLabels = []string{"Very Low", "Low", "Medium", "High", "Very High"}

// weekdayOrder lists weekday names Monday-first for chart ordering
var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}
