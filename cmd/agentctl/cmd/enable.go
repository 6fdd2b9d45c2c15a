package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newEnableCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <module>",
		Short: "Enable a module for the next load cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			if err := ctl.facade.EnableModule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module %q enabled\n", args[0])
			return nil
		},
	}
}

func newDisableCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <module>",
		Short: "Disable a module for the next load cycle",
		Long: `Disable flips the persisted enabled flag. A currently running instance
keeps running; the flag takes effect on the next load cycle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			if err := ctl.facade.DisableModule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module %q disabled\n", args[0])
			return nil
		},
	}
}
