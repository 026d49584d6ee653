package models

// RecommendForm holds the soil and climate values of a crop recommendation.
// Temperature and Humidity are optional on input; a weather reading may
// supply them.
type RecommendForm struct {
	Nitrogen    float64  `json:"nitrogen"`
	Phosphorus  float64  `json:"phosphorus"`
	Potassium   float64  `json:"potassium"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	PH          float64  `json:"ph"`
	Rainfall    float64  `json:"rainfall"`
}

// Complete reports whether every value the service needs is present.
func (f RecommendForm) Complete() bool {
	return f.Temperature != nil && f.Humidity != nil
}

// CropRecommendation is the service's answer. Prefilled names the form
// fields that were taken from the weather reading.
type CropRecommendation struct {
	Recommendation string   `json:"recommended_crop"`
	Prefilled      []string `json:"prefilled,omitempty"`
}
