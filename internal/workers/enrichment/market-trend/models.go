package markettrend

import "crop-dashboard/internal/models"

type Input struct {
	Crop  string `json:"crop"`
	State string `json:"state,omitempty"`
}

type Output struct {
	State  string             `json:"state"`
	Market models.MarketPanel `json:"market"`
}
