package markettrend

import (
	"time"

	"crop-dashboard/internal/mapview"
)

type Config struct {
	Timeout time.Duration
	// State is used when a job names no state.
	State string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		State:   mapview.State,
	}
}
