package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentos-project/agentos"
)

func newValidateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate live modules against their manifests",
		Long: `Validate re-reads the manifest of every live module and reports drift.
Core module drift is a hard failure; everything else is a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			report, err := ctl.facade.ValidateCoreModules(cmd.Context())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "validated %d module(s)\n", len(report.Checked))
			for _, warning := range report.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", warning)
			}
			if err != nil {
				var verr *agentos.ValidationError
				if errors.As(err, &verr) {
					for _, mm := range verr.Mismatches {
						fmt.Fprintf(out, "  mismatch: %s\n", mm)
					}
				}
				return err
			}
			return nil
		},
	}
}
