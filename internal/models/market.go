package models

type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type MarketOverview struct {
	AveragePrice float64 `json:"average_price"`
	PriceChange  float64 `json:"price_change"`
	Trend        string  `json:"trend"`
}

// MarketTrendSeries belongs to exactly one crop.
type MarketTrendSeries struct {
	Crop            string         `json:"crop"`
	Points          []PricePoint   `json:"trend_data"`
	Overview        MarketOverview `json:"market_overview"`
	Recommendations []string       `json:"recommendations"`
}

// Empty reports whether there is nothing to chart.
func (s *MarketTrendSeries) Empty() bool {
	return s == nil || len(s.Points) == 0
}

// MarketPanelStatus is the display state of the market panel.
type MarketPanelStatus string

const (
	MarketIdle    MarketPanelStatus = "idle"
	MarketLoading MarketPanelStatus = "loading"
	MarketReady   MarketPanelStatus = "ready"
	MarketEmpty   MarketPanelStatus = "empty"
)

// MarketPanel is what the dashboard shows. Series is nil unless Status is ready.
// Message is the placeholder text for the loading and empty states; Reason
// carries the error code behind an empty panel.
type MarketPanel struct {
	Status     MarketPanelStatus  `json:"status"`
	Crop       string             `json:"crop"`
	Series     *MarketTrendSeries `json:"series,omitempty"`
	Suggestion string             `json:"suggestion,omitempty"`
	Message    string             `json:"message,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}
