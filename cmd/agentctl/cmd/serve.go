package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentos-project/agentos/httpapi"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the module control API over HTTP",
		Long: `Serve exposes the catalog and orchestration facade over HTTP:
listing, enable/disable, rescans, validation, and aggregate health.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := openControl(v)
			if err != nil {
				return err
			}
			defer ctl.Close()

			addr := v.GetString("listen")
			server := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewServer(ctl.facade, ctl.logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				_ = server.Close()
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "serving module control API on %s\n", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("listen", ":8690", "address to listen on")
	_ = v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
