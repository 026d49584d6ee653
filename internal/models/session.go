package models

import "time"

// DashboardStatus distinguishes a renderable dashboard from the no-result page.
type DashboardStatus string

const (
	DashboardReady    DashboardStatus = "ready"
	DashboardNoResult DashboardStatus = "no_result"
)

// LocalizedGuideSection is a guide section with headings and bullets resolved.
type LocalizedGuideSection struct {
	Key   GuideSectionKey      `json:"key"`
	Title string               `json:"title"`
	Lists []LocalizedGuideList `json:"lists"`
}

type LocalizedGuideList struct {
	Key     GuideItemKey `json:"key"`
	Heading string       `json:"heading"`
	Items   []string     `json:"items"`
}

// FormView is the form slice of a session.
type FormView struct {
	Fields  PredictionForm      `json:"fields"`
	Weather *WeatherObservation `json:"weather,omitempty"`
	// WeatherPending is true while a fetch for the current district is outstanding.
	WeatherPending bool            `json:"weather_pending"`
	Map            MapViewState    `json:"map"`
	Overlay        *WeatherOverlay `json:"overlay,omitempty"`
}

// DashboardView is the full view-model rendered by the dashboard page.
type DashboardView struct {
	SessionID       string                  `json:"session_id"`
	Status          DashboardStatus         `json:"status"`
	Message         string                  `json:"message,omitempty"`
	Language        LanguageCode            `json:"language"`
	Result          *PredictionResult       `json:"result,omitempty"`
	Charts          *DashboardCharts        `json:"charts,omitempty"`
	Recommendations []string                `json:"recommendations,omitempty"`
	Guide           []LocalizedGuideSection `json:"guide,omitempty"`
	Market          MarketPanel             `json:"market"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
