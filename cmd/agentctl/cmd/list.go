package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newListCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every module in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			records, err := ctl.facade.ListCatalog(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tTYPE\tENABLED\tSTATUS")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
					rec.Name, rec.Version, rec.Type, rec.Enabled, rec.Status)
			}
			return w.Flush()
		},
	}
}
