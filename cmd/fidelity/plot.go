package main

import (
	"fmt"
	"os"

	"github.com/coledavid/fidelity"
	"github.com/spf13/cobra"
)

func newPlotCmd(cfg *Config) *cobra.Command {
	report := cfg.Report
	out := cfg.ChartDir

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render one chart per compression type from a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err := os.MkdirAll(out, 0755); err != nil {
				return fmt.Errorf("create %q: %w", out, err)
			}
			t, err := fidelity.LoadTable(report)
			if err != nil {
				return err
			}
			paths, err := fidelity.RenderCharts(t, out)
			if err != nil {
				return err
			}
			for _, p := range paths {
				log.Info().Str("chart", p).Msg("chart written")
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&report, "report", "r", report, "Report to read (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", out, "Directory for charts")
	return cmd
}

func newClearCmd(cfg *Config) *cobra.Command {
	report := cfg.Report

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Overwrite a report with an empty, header-only one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fidelity.SaveTable(report, fidelity.NewResultsTable()); err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			log.Info().Str("report", report).Msg("report cleared")
			return nil
		},
	}
	cmd.Flags().StringVarP(&report, "report", "r", report, "Report to clear")
	return cmd
}
