package models

// FetchStatus tags where a weather panel's values came from.
type FetchStatus string

const (
	FetchSuccess     FetchStatus = "success"
	FetchUnavailable FetchStatus = "unavailable"
	FetchError       FetchStatus = "error"
)

// WeatherObservation is a reading for one district, or a synthesized
// fallback when Status is not FetchSuccess.
type WeatherObservation struct {
	Temperature   float64     `json:"temperature"`
	Humidity      float64     `json:"humidity"`
	WindSpeed     float64     `json:"wind_speed"`
	Pressure      float64     `json:"pressure"`
	Description   string      `json:"description"`
	SeasonHint    string      `json:"season,omitempty"`
	Precipitation *float64    `json:"precipitation,omitempty"`
	Status        FetchStatus `json:"status"`
}

// IsFallback reports whether the observation is a placeholder.
func (o WeatherObservation) IsFallback() bool {
	return o.Status != FetchSuccess
}

// Autofill is what a weather observation contributes to the form.
type Autofill struct {
	Rainfall float64 `json:"rainfall"`
	// Season is empty when the hint matched no known season.
	Season string `json:"season,omitempty"`
}
