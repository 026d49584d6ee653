package models

import (
	"fmt"
	"math"
)

// PredictionResult is the payload returned once per submission by the
// prediction service. Categorical fields are free-form strings.
type PredictionResult struct {
	PredictedProduction        float64     `json:"predicted_production"`
	YieldPerHectare            float64     `json:"yield_per_hectare"`
	Area                       float64     `json:"area"`
	Rainfall                   float64     `json:"rainfall"`
	SoilQualityScore           float64     `json:"soil_quality_score"`
	RainfallEfficiency         float64     `json:"rainfall_efficiency"`
	AreaEfficiency             float64     `json:"area_efficiency"`
	OverallSustainabilityScore float64     `json:"overall_sustainability_score"`
	Crop                       string      `json:"crop"`
	District                   string      `json:"district"`
	Season                     string      `json:"season"`
	SoilQuality                string      `json:"soil_quality"`
	Recommendations            []string    `json:"recommendations"`
	FarmerGuide                FarmerGuide `json:"farmer_guide"`
}

// Validate enforces that every numeric field is finite.
func (r *PredictionResult) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"predicted_production", r.PredictedProduction},
		{"yield_per_hectare", r.YieldPerHectare},
		{"area", r.Area},
		{"rainfall", r.Rainfall},
		{"soil_quality_score", r.SoilQualityScore},
		{"rainfall_efficiency", r.RainfallEfficiency},
		{"area_efficiency", r.AreaEfficiency},
		{"overall_sustainability_score", r.OverallSustainabilityScore},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hand results across goroutines.
func (r *PredictionResult) Clone() *PredictionResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Recommendations = append([]string(nil), r.Recommendations...)
	out.FarmerGuide = r.FarmerGuide.Clone()
	return &out
}

// PredictionForm holds the fields the viewer submits.
type PredictionForm struct {
	District    string  `json:"district"`
	Rainfall    float64 `json:"rainfall"`
	Area        float64 `json:"area"`
	Season      string  `json:"season"`
	SoilQuality string  `json:"soil_quality"`
	Crop        string  `json:"crop"`
}

// Option lists offered by the form.
var (
	Seasons       = []string{"Rabi", "Kharif", "Whole Year"}
	SoilQualities = []string{"Poor", "Moderate", "Good"}
	Crops         = []string{
		"Groundnut", "Cotton", "Rice", "Barley", "Gram", "Maize",
		"Mustard", "Peas", "Pulses", "Soybean", "Sugarcane",
	}
)
