// Package derivation turns a PredictionResult into the dashboard's chart
// datasets. Every function is pure: the input is never modified and equal
// inputs produce equal outputs.
package derivation

import (
	"math"

	"crop-dashboard/internal/models"
)

const (
	// OtherPotentialFactor sizes the "Other Potential" slice relative to
	// predicted production.
	OtherPotentialFactor = 0.3

	// ReferenceYieldCeiling is the yield per hectare that maps to a full
	// yield-potential score.
	ReferenceYieldCeiling = 20.0

	// RainfallDisplayDivisor scales rainfall so it fits next to area and
	// production on one axis. Display only.
	RainfallDisplayDivisor = 10.0

	// FullMark is the radar's outer ring.
	FullMark = 100.0
)

// Metric keys. Colors and labels are fixed per key.
const (
	MetricPredictedProduction = "predicted_production"
	MetricOtherPotential      = "other_potential"
	MetricSoilQuality         = "soil_quality_score"
	MetricRainfallEfficiency  = "rainfall_efficiency"
	MetricAreaEfficiency      = "area_efficiency"
	MetricSustainability      = "overall_sustainability_score"
	MetricYieldPotential      = "yield_potential"
	MetricYieldPerHectare     = "yield_per_hectare"
	MetricArea                = "area"
	MetricRainfall            = "rainfall"
)

// Chart keys for DashboardCharts.Titles.
const (
	ChartProductionBreakdown = "production_breakdown"
	ChartEfficiency          = "efficiency"
	ChartRadar               = "radar"
	ChartResources           = "resources"
	ChartMarket              = "market"
	ChartGuide               = "guide"
)

const (
	ColorSoil           = "#8884d8"
	ColorRainfall       = "#82ca9d"
	ColorArea           = "#ffc658"
	ColorSustainability = "#ff7300"
)

// Labels are the English source texts; the resolver translates them.
var labels = map[string]string{
	MetricPredictedProduction: "Predicted Production",
	MetricOtherPotential:      "Other Potential",
	MetricSoilQuality:         "Soil Quality",
	MetricRainfallEfficiency:  "Rainfall Efficiency",
	MetricAreaEfficiency:      "Area Efficiency",
	MetricSustainability:      "Sustainability",
	MetricYieldPotential:      "Yield Potential",
	MetricYieldPerHectare:     "Yield per Hectare",
	MetricArea:                "Area (ha)",
	MetricRainfall:            "Rainfall (mm/10)",
}

var colors = map[string]string{
	MetricPredictedProduction: ColorSoil,
	MetricOtherPotential:      ColorRainfall,
	MetricSoilQuality:         ColorSoil,
	MetricRainfallEfficiency:  ColorRainfall,
	MetricAreaEfficiency:      ColorArea,
	MetricSustainability:      ColorSustainability,
	MetricArea:                ColorArea,
	MetricRainfall:            ColorRainfall,
}

var chartTitles = map[string]string{
	ChartProductionBreakdown: "Production Breakdown",
	ChartEfficiency:          "Efficiency Metrics",
	ChartRadar:               "Performance Radar",
	ChartResources:           "Resource Utilization",
	ChartMarket:              "Market Trends",
	ChartGuide:               "Farmer Guide",
}

// resourceProductionLabel names the production bar of the resource chart,
// which shares its axis with area and scaled rainfall.
const resourceProductionLabel = "Production (q)"

// Translator resolves English display text into a language.
type Translator interface {
	Resolve(text string, lang models.LanguageCode) string
}

type identity struct{}

func (identity) Resolve(text string, _ models.LanguageCode) string { return text }

func orIdentity(tr Translator) Translator {
	if tr == nil {
		return identity{}
	}
	return tr
}

// Label returns the English label of a metric key.
func Label(metric string) string {
	return labels[metric]
}

// Color returns the fixed color of a metric key.
func Color(metric string) string {
	return colors[metric]
}

// OtherPotential is max(0, production * OtherPotentialFactor).
func OtherPotential(predictedProduction float64) float64 {
	return math.Max(0, predictedProduction*OtherPotentialFactor)
}

// YieldPotential is min(yield/ceiling*100, 100). Negative yields are not
// floored here; renderers clamp.
func YieldPotential(yieldPerHectare float64) float64 {
	return math.Min(yieldPerHectare/ReferenceYieldCeiling*100, 100)
}

// ProductionBreakdown returns the two pie slices.
func ProductionBreakdown(r *models.PredictionResult, lang models.LanguageCode, tr Translator) []models.Slice {
	tr = orIdentity(tr)
	return []models.Slice{
		{
			Name:  tr.Resolve(labels[MetricPredictedProduction], lang),
			Value: r.PredictedProduction,
			Color: colors[MetricPredictedProduction],
		},
		{
			Name:  tr.Resolve(labels[MetricOtherPotential], lang),
			Value: OtherPotential(r.PredictedProduction),
			Color: colors[MetricOtherPotential],
		},
	}
}

// EfficiencyBars returns the four score bars.
func EfficiencyBars(r *models.PredictionResult, lang models.LanguageCode, tr Translator) []models.Bar {
	tr = orIdentity(tr)
	values := []struct {
		metric string
		value  float64
	}{
		{MetricSoilQuality, r.SoilQualityScore},
		{MetricRainfallEfficiency, r.RainfallEfficiency},
		{MetricAreaEfficiency, r.AreaEfficiency},
		{MetricSustainability, r.OverallSustainabilityScore},
	}

	bars := make([]models.Bar, 0, len(values))
	for _, v := range values {
		bars = append(bars, models.Bar{
			Metric:  v.metric,
			Name:    tr.Resolve(labels[v.metric], lang),
			Value:   v.value,
			Display: ClampPercent(v.value),
			Color:   colors[v.metric],
		})
	}
	return bars
}

// Radar returns the five radar axes.
func Radar(r *models.PredictionResult, lang models.LanguageCode, tr Translator) []models.RadarAxis {
	tr = orIdentity(tr)
	values := []struct {
		metric string
		value  float64
	}{
		{MetricSoilQuality, r.SoilQualityScore},
		{MetricRainfallEfficiency, r.RainfallEfficiency},
		{MetricAreaEfficiency, r.AreaEfficiency},
		{MetricSustainability, r.OverallSustainabilityScore},
		{MetricYieldPotential, YieldPotential(r.YieldPerHectare)},
	}

	axes := make([]models.RadarAxis, 0, len(values))
	for _, v := range values {
		axes = append(axes, models.RadarAxis{
			Metric:   v.metric,
			Subject:  tr.Resolve(labels[v.metric], lang),
			Value:    v.value,
			Display:  ClampPercent(v.value),
			FullMark: FullMark,
		})
	}
	return axes
}

// ResourceBars returns area, scaled rainfall and predicted production.
// These are not percentages, so Display equals Value.
func ResourceBars(r *models.PredictionResult, lang models.LanguageCode, tr Translator) []models.Bar {
	tr = orIdentity(tr)
	rainfall := r.Rainfall / RainfallDisplayDivisor
	return []models.Bar{
		{
			Metric:  MetricArea,
			Name:    tr.Resolve(labels[MetricArea], lang),
			Value:   r.Area,
			Display: r.Area,
			Color:   colors[MetricArea],
		},
		{
			Metric:  MetricRainfall,
			Name:    tr.Resolve(labels[MetricRainfall], lang),
			Value:   rainfall,
			Display: rainfall,
			Color:   colors[MetricRainfall],
		},
		{
			Metric:  MetricPredictedProduction,
			Name:    tr.Resolve(resourceProductionLabel, lang),
			Value:   r.PredictedProduction,
			Display: r.PredictedProduction,
			Color:   colors[MetricPredictedProduction],
		},
	}
}

// KPIs returns the headline cards.
func KPIs(r *models.PredictionResult, lang models.LanguageCode, tr Translator) []models.KPICard {
	tr = orIdentity(tr)
	return []models.KPICard{
		{
			Metric: MetricPredictedProduction,
			Title:  tr.Resolve("Predicted Production", lang),
			Value:  r.PredictedProduction,
			Unit:   tr.Resolve("quintals", lang),
		},
		{
			Metric: MetricYieldPerHectare,
			Title:  tr.Resolve("Yield per Hectare", lang),
			Value:  r.YieldPerHectare,
			Unit:   tr.Resolve("q/ha", lang),
		},
		{
			Metric: MetricArea,
			Title:  tr.Resolve("Cultivated Area", lang),
			Value:  r.Area,
			Unit:   tr.Resolve("ha", lang),
		},
		{
			Metric: MetricSustainability,
			Title:  tr.Resolve("Sustainability Score", lang),
			Value:  r.OverallSustainabilityScore,
			Unit:   "%",
		},
	}
}

// Titles returns the localized chart titles keyed by chart.
func Titles(lang models.LanguageCode, tr Translator) map[string]string {
	tr = orIdentity(tr)
	out := make(map[string]string, len(chartTitles))
	for k, v := range chartTitles {
		out[k] = tr.Resolve(v, lang)
	}
	return out
}

// Derive computes every dataset of the dashboard.
func Derive(r *models.PredictionResult, lang models.LanguageCode, tr Translator) models.DashboardCharts {
	return models.DashboardCharts{
		KPIs:                KPIs(r, lang, tr),
		ProductionBreakdown: ProductionBreakdown(r, lang, tr),
		EfficiencyBars:      EfficiencyBars(r, lang, tr),
		Radar:               Radar(r, lang, tr),
		ResourceBars:        ResourceBars(r, lang, tr),
		Titles:              Titles(lang, tr),
	}
}

// ClampPercent limits v to [0, 100] for rendering. NaN renders as 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
