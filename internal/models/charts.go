package models

// Slice is one wedge of the production breakdown pie.
type Slice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Bar is one bar of a bar chart.
// Value is the raw number; Display is what the chart draws, clamped to
// [0, 100] for percentage metrics.
type Bar struct {
	Metric  string  `json:"metric"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Display float64 `json:"display"`
	Color   string  `json:"color"`
}

// RadarAxis is one spoke of the performance radar.
type RadarAxis struct {
	Metric   string  `json:"metric"`
	Subject  string  `json:"subject"`
	Value    float64 `json:"value"`
	Display  float64 `json:"display"`
	FullMark float64 `json:"full_mark"`
}

// KPICard is a headline number at the top of the dashboard.
type KPICard struct {
	Metric string  `json:"metric"`
	Title  string  `json:"title"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// DashboardCharts bundles every dataset derived from one PredictionResult.
type DashboardCharts struct {
	KPIs                []KPICard         `json:"kpis"`
	ProductionBreakdown []Slice           `json:"production_breakdown"`
	EfficiencyBars      []Bar             `json:"efficiency_bars"`
	Radar               []RadarAxis       `json:"radar"`
	ResourceBars        []Bar             `json:"resource_bars"`
	Titles              map[string]string `json:"titles"`
}
