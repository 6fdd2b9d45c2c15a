package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentos-project/agentos"
)

func newScanCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Rescan module roots and reconcile the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := v.GetStringSlice("roots")
			if len(roots) == 0 {
				return fmt.Errorf("%w (use --roots or the config file)", agentos.ErrNoModuleRoots)
			}

			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			result, err := ctl.facade.ScanForModules(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scan %s: %d discovered, %d created, %d updated\n",
				result.ScanID, len(result.Descriptors), len(result.Created), len(result.Updated))
			for _, failure := range result.Failed {
				fmt.Fprintf(out, "  failed: %s: %s\n", failure.Module, failure.Err)
			}
			return nil
		},
	}
}
