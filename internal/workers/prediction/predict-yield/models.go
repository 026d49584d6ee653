package predictyield

import "crop-dashboard/internal/models"

// Input is the submitted form carried as process variables.
type Input struct {
	models.PredictionForm
}

type Output struct {
	Prediction *models.PredictionResult `json:"prediction"`
	Crop       string                   `json:"crop"`
}
