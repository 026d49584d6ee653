package derivemetrics

import "crop-dashboard/internal/models"

type Input struct {
	Result   models.PredictionResult `json:"result"`
	Language models.LanguageCode     `json:"language,omitempty"`
}

type Output struct {
	Language        models.LanguageCode            `json:"language"`
	Charts          models.DashboardCharts         `json:"charts"`
	Recommendations []string                       `json:"recommendations"`
	Guide           []models.LocalizedGuideSection `json:"guide"`
}
