package weatherautofill

import "crop-dashboard/internal/models"

type Input struct {
	District string `json:"district"`
	Season   string `json:"season,omitempty"`
}

type Output struct {
	District string                    `json:"district"`
	Weather  models.WeatherObservation `json:"weather"`
	Rainfall float64                   `json:"rainfall"`
	Season   string                    `json:"season,omitempty"`
	Map      models.MapViewState       `json:"map"`
	Overlay  models.WeatherOverlay     `json:"overlay"`
}
