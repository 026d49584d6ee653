package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"crop-dashboard/internal/derivation"
	"crop-dashboard/internal/localization"
	"crop-dashboard/internal/models"

	"github.com/spf13/cobra"
)

var deriveLang string

var deriveCmd = &cobra.Command{
	Use:   "derive [result.json|-]",
	Short: "Print the dashboard datasets for a saved prediction result",
	Long: `Reads a prediction service response and prints the KPI cards, chart
datasets, recommendations and farmer guide the dashboard would render.
Reads stdin when no file or "-" is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return derive(in, cmd.OutOrStdout(), models.LanguageCode(deriveLang))
	},
}

func init() {
	deriveCmd.Flags().StringVarP(&deriveLang, "lang", "l", "", "display language (default: localization.base_language)")
}

type derivedView struct {
	Language        models.LanguageCode            `json:"language"`
	Charts          models.DashboardCharts         `json:"charts"`
	Recommendations []string                       `json:"recommendations"`
	Guide           []models.LocalizedGuideSection `json:"guide"`
}

func derive(in io.Reader, out io.Writer, lang models.LanguageCode) error {
	var result models.PredictionResult
	if err := json.NewDecoder(in).Decode(&result); err != nil {
		return fmt.Errorf("decode prediction result: %w", err)
	}
	if err := result.Validate(); err != nil {
		return err
	}

	resolver, err := localization.Load(models.LanguageCode(cfg.Localization.BaseLanguage), cfg.Localization.OverlayDir, log)
	if err != nil {
		return err
	}
	if lang == "" {
		lang = resolver.Base()
	}
	if !resolver.Supports(lang) {
		log.Warn("unsupported language, showing base text", map[string]interface{}{"language": lang})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(derivedView{
		Language:        lang,
		Charts:          derivation.Derive(&result, lang, resolver),
		Recommendations: resolver.ResolveAll(result.Recommendations, lang),
		Guide:           resolver.LocalizeGuide(result.FarmerGuide, lang),
	})
}
