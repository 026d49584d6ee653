package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"crop-dashboard/pkg/registry"

	"github.com/spf13/cobra"
)

var registryPath string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the job activity registry",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// no config needed
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tVERSION\tTIMEOUT\tRETRIES")
		for _, act := range reg.Activities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", act.TaskType, act.Category, act.Version, act.Timeout, act.Retries)
		}
		return w.Flush()
	},
}

var registryCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify task types are unique and every input schema compiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		errs := reg.Check()
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registry %s: %d activities ok\n", reg.Version, len(reg.Activities))
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "", "registry file (default: the embedded registry)")
	registryCmd.AddCommand(registryListCmd, registryCheckCmd)
}

func loadRegistry() (*registry.ActivityRegistry, error) {
	if registryPath != "" {
		return registry.LoadRegistry(registryPath)
	}
	return registry.Default()
}
