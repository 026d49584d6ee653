package dashboard

import "crop-dashboard/internal/models"

// Event types pushed after a background merge.
const (
	EventWeather = "weather"
	EventMarket  = "market"
)

// Event tells a subscribed browser which part of the session changed.
type Event struct {
	Type      string              `json:"type"`
	SessionID string              `json:"session_id"`
	Form      *models.FormView    `json:"form,omitempty"`
	Market    *models.MarketPanel `json:"market,omitempty"`
}

// Notifier delivers session events. Publish must not block.
type Notifier interface {
	Publish(sessionID string, event Event)
}
