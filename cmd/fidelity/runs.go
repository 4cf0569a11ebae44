package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/coledavid/fidelity"
	"github.com/spf13/cobra"
)

func newRunsCmd(cfg *Config) *cobra.Command {
	archive := cfg.Archive
	var export string

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List archived runs, or export one run's results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archive == "" {
				return errors.New("--archive is required")
			}
			a, err := fidelity.OpenArchive(archive)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				t, err := a.Load(args[0])
				if err != nil {
					return err
				}
				if export != "" {
					return fidelity.SaveTable(export, t)
				}
				return fidelity.WriteTable(cmd.OutOrStdout(), t, ',')
			}

			runs, err := a.Runs()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tSPEC")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), r.SourceDir, r.Spec)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&archive, "archive", "a", archive, "SQLite archive")
	cmd.Flags().StringVarP(&export, "export", "e", "", "Write the run's results to this report instead of stdout")
	return cmd
}
