package main

import (
	"github.com/coledavid/fidelity"
	"github.com/spf13/cobra"
)

func newRootCmd(cfg *Config) *cobra.Command {
	logLevel := cfg.LogLevel

	root := &cobra.Command{
		Use:           "fidelity",
		Short:         "Compress images and score the quality they lose",
		Version:       fidelity.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level: debug|info|warn|error")

	// Commands read the level through cfg so the flag wins over the environment.
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg.LogLevel = logLevel
	}

	root.AddCommand(
		newProcessCmd(cfg),
		newPlotCmd(cfg),
		newClearCmd(cfg),
		newScoreCmd(cfg),
		newRunsCmd(cfg),
	)
	return root
}
