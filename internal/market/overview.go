package market

import (
	"strings"

	"crop-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// Percent-change thresholds for suggestions and trend labels.
const (
	RisingThreshold  = 3.0
	FallingThreshold = -3.0
)

const (
	SuggestRising  = "Prices rising, consider selling"
	SuggestFalling = "Prices falling, consider holding"
	SuggestStable  = "Prices stable, consult local market"
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Suggestion is the first service recommendation when present, otherwise a
// rule on the overview's percent change.
func Suggestion(series *models.MarketTrendSeries) string {
	if series == nil {
		return ""
	}
	for _, r := range series.Recommendations {
		if strings.TrimSpace(r) != "" {
			return r
		}
	}
	return suggestionForChange(series.Overview.PriceChange)
}

func suggestionForChange(change float64) string {
	switch {
	case change > RisingThreshold:
		return SuggestRising
	case change < FallingThreshold:
		return SuggestFalling
	default:
		return SuggestStable
	}
}

// TrendLabel names the direction of a percent change.
func TrendLabel(change float64) string {
	switch {
	case change > RisingThreshold:
		return TrendIncreasing
	case change < FallingThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// AveragePrice is the mean price of points, rounded to 2 places.
func AveragePrice(points []models.PricePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, p := range points {
		sum = sum.Add(decimal.NewFromFloat(p.Price))
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(points)))).Round(2).Float64()
	return avg
}

// PriceChange is the percent change from the first to the last point,
// rounded to 2 places. A zero first price yields 0.
func PriceChange(points []models.PricePoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first := decimal.NewFromFloat(points[0].Price)
	last := decimal.NewFromFloat(points[len(points)-1].Price)
	if first.IsZero() {
		return 0
	}
	pct, _ := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// DeriveOverview computes an overview from the series alone.
func DeriveOverview(points []models.PricePoint) models.MarketOverview {
	change := PriceChange(points)
	return models.MarketOverview{
		AveragePrice: AveragePrice(points),
		PriceChange:  change,
		Trend:        TrendLabel(change),
	}
}

// partialOverview is an overview as received, with absent fields nil.
type partialOverview struct {
	AveragePrice *float64 `json:"average_price"`
	PriceChange  *float64 `json:"price_change"`
	Trend        *string  `json:"trend"`
}

// complete fills the fields the payload omitted from the series.
func (p *partialOverview) complete(points []models.PricePoint) models.MarketOverview {
	derived := DeriveOverview(points)
	if p == nil {
		return derived
	}
	out := derived
	if p.AveragePrice != nil {
		out.AveragePrice = *p.AveragePrice
	}
	if p.PriceChange != nil {
		out.PriceChange = *p.PriceChange
	}
	if p.Trend != nil && *p.Trend != "" {
		out.Trend = *p.Trend
	} else if p.PriceChange != nil {
		out.Trend = TrendLabel(*p.PriceChange)
	}
	return out
}
