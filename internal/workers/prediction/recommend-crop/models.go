package recommendcrop

import "crop-dashboard/internal/models"

// Input is the soil and climate form. Weather is the reading left by the
// weather-autofill task, if the process ran it.
type Input struct {
	models.RecommendForm
	Weather *models.WeatherObservation `json:"weather,omitempty"`
}

type Output struct {
	Recommendation *models.CropRecommendation `json:"recommendation"`
}
