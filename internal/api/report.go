package api

import (
	"embed"
	"html/template"
	"io"

	"crop-dashboard/internal/localization"
	"crop-dashboard/internal/models"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html"))

type reportLabels struct {
	Title           string
	District        string
	Crop            string
	Season          string
	SoilQuality     string
	Rainfall        string
	Area            string
	Production      string
	Recommendations string
	Hectares        string
	Quintals        string
}

type reportData struct {
	Language        models.LanguageCode
	Labels          reportLabels
	Result          *models.PredictionResult
	Recommendations []string
	Message         string
}

func newReportData(view models.DashboardView, tr *localization.Resolver) reportData {
	lang := view.Language
	return reportData{
		Language: lang,
		Labels: reportLabels{
			Title:           tr.Resolve("Crop Prediction Report", lang),
			District:        tr.Resolve("District", lang),
			Crop:            tr.Resolve("Crop", lang),
			Season:          tr.Resolve("Season", lang),
			SoilQuality:     tr.Resolve("Soil Quality", lang),
			Rainfall:        tr.Resolve("Rainfall", lang),
			Area:            tr.Resolve("Area", lang),
			Production:      tr.Resolve("Predicted Production", lang),
			Recommendations: tr.Resolve("Recommendations", lang),
			Hectares:        tr.Resolve("ha", lang),
			Quintals:        tr.Resolve("quintals", lang),
		},
		Result:          view.Result,
		Recommendations: view.Recommendations,
		Message:         view.Message,
	}
}

// renderReport writes the printable report for a dashboard view.
func renderReport(w io.Writer, view models.DashboardView, tr *localization.Resolver) error {
	return reportTemplate.Execute(w, newReportData(view, tr))
}
