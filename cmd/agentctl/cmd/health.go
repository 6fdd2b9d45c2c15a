package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHealthCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report aggregated module health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			snapshot := ctl.facade.HealthCheckAll(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "health: %s\nreadiness: %s\n", snapshot.Health, snapshot.Readiness)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tSTATUS\tOPTIONAL\tMESSAGE")
			for _, rep := range snapshot.Reports {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", rep.Module, rep.Status, rep.Optional, rep.Message)
			}
			return w.Flush()
		},
	}
}
