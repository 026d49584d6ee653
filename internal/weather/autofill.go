package weather

import (
	"math"
	"strings"

	"crop-dashboard/internal/models"
)

// Placeholder panel values shown when no real reading is available.
const (
	FallbackTemperature = 28.0
	FallbackHumidity    = 65.0
	FallbackWindSpeed   = 12.0
	FallbackPressure    = 1013.0
)

// Rainfall autofill values.
const (
	FallbackRainfall  = 50.0
	ZeroPrecipitation = 50.0
	RainyRainfall     = 75.0
	HumidRainfall     = 50.0
	DryRainfall       = 25.0
	HumidityThreshold = 70.0
)

// Fallback returns the placeholder observation tagged with status.
func Fallback(status models.FetchStatus) models.WeatherObservation {
	desc := "Weather data unavailable"
	if status == models.FetchError {
		desc = "Weather service unreachable"
	}
	return models.WeatherObservation{
		Temperature: FallbackTemperature,
		Humidity:    FallbackHumidity,
		WindSpeed:   FallbackWindSpeed,
		Pressure:    FallbackPressure,
		Description: desc,
		Status:      status,
	}
}

// RainfallFor picks the rainfall value for an observation. Rules are tried
// in order: explicit precipitation, a "rain" description, humidity, then
// the dry default. Fallback observations always yield FallbackRainfall.
func RainfallFor(obs models.WeatherObservation) float64 {
	if obs.IsFallback() {
		return FallbackRainfall
	}
	if obs.Precipitation != nil {
		v := roundHalfUp(*obs.Precipitation * 100)
		if v == 0 || math.IsNaN(v) {
			return ZeroPrecipitation
		}
		return v
	}
	if strings.Contains(strings.ToLower(obs.Description), "rain") {
		return RainyRainfall
	}
	if obs.Humidity > HumidityThreshold {
		return HumidRainfall
	}
	return DryRainfall
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// MatchSeason returns the known season whose full name or first word
// appears in hint, case-insensitively. Seasons are tried in form order.
func MatchSeason(hint string) (string, bool) {
	h := strings.ToLower(hint)
	if strings.TrimSpace(h) == "" {
		return "", false
	}
	for _, season := range models.Seasons {
		full := strings.ToLower(season)
		first := strings.Fields(full)[0]
		if strings.Contains(h, full) || strings.Contains(h, first) {
			return season, true
		}
	}
	return "", false
}

// Autofill computes the form values an observation contributes. Season is
// empty when the hint names no known season.
func Autofill(obs models.WeatherObservation) models.Autofill {
	fill := models.Autofill{Rainfall: RainfallFor(obs)}
	if !obs.IsFallback() {
		if season, ok := MatchSeason(obs.SeasonHint); ok {
			fill.Season = season
		}
	}
	return fill
}

// Apply writes fill into a copy of form. An empty season leaves the
// form's season untouched.
func Apply(form models.PredictionForm, fill models.Autofill) models.PredictionForm {
	form.Rainfall = fill.Rainfall
	if fill.Season != "" {
		form.Season = fill.Season
	}
	return form
}

// Recommendation form fields that a weather reading can supply.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
)

// PrefillClimate fills a missing temperature or humidity from obs and
// returns the names of the fields it set. Values the user entered are kept.
// Fallback observations carry placeholder numbers and are never used.
func PrefillClimate(form models.RecommendForm, obs *models.WeatherObservation) (models.RecommendForm, []string) {
	if obs == nil || obs.IsFallback() {
		return form, nil
	}
	var filled []string
	if form.Temperature == nil {
		t := obs.Temperature
		form.Temperature = &t
		filled = append(filled, FieldTemperature)
	}
	if form.Humidity == nil {
		h := obs.Humidity
		form.Humidity = &h
		filled = append(filled, FieldHumidity)
	}
	return form, filled
}
