package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"crop-dashboard/internal/common/config"
	"crop-dashboard/internal/export"

	"github.com/spf13/cobra"
)

var (
	exportSession string
	exportLang    string
	exportOut     string
	exportBaseURL string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a session's report from a running server to PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := exportBaseURL
		if baseURL == "" {
			baseURL = cfg.Server.PublicBaseURL
		}
		renderer := export.NewRodRenderer(&export.Config{
			ChromeBin: cfg.Export.ChromeBin,
			Headless:  true,
			Timeout:   config.GetDuration(cfg.Export.Timeout),
		})
		exporter := export.NewExporter(renderer, baseURL, cfg.Export.FileName, log)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		data, ok := exporter.Export(ctx, exportSession, exportLang)
		if !ok {
			return errors.New("no document produced, see log for details")
		}

		out := exportOut
		if out == "" {
			out = exporter.FileName()
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportSession, "session", "s", "", "session id")
	exportCmd.Flags().StringVarP(&exportLang, "lang", "l", "", "report language")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: export.file_name)")
	exportCmd.Flags().StringVar(&exportBaseURL, "base-url", "", "server address (default: server.public_base_url)")
	_ = exportCmd.MarkFlagRequired("session")
}
