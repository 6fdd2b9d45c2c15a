// Package cmd implements the agentctl command tree. agentctl works against
// the persisted module catalog, so the module set can be inspected and
// controlled even while the runtime itself is down.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentos-project/agentos"
	"github.com/agentos-project/agentos/store"
)

// Version information, overridden at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCommand creates the root command for agentctl.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "agentctl",
		Short: "agentctl - control the agentos module catalog",
		Long: `agentctl inspects and controls the agentos module catalog.
It talks to the persisted catalog store directly, so modules can be listed,
enabled, disabled, and rescanned whether or not the runtime is running.`,
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default ./agentctl.yaml, $HOME/.agentos/agentctl.yaml)")
	cmd.PersistentFlags().String("catalog", "agentos.db", "path to the catalog database")
	cmd.PersistentFlags().StringSlice("roots", nil, "module root directories to scan")
	_ = v.BindPFlag("catalog", cmd.PersistentFlags().Lookup("catalog"))
	_ = v.BindPFlag("roots", cmd.PersistentFlags().Lookup("roots"))

	cobra.OnInitialize(func() { initConfig(cmd, v) })

	cmd.AddCommand(newListCommand(v))
	cmd.AddCommand(newShowCommand(v))
	cmd.AddCommand(newEnableCommand(v))
	cmd.AddCommand(newDisableCommand(v))
	cmd.AddCommand(newScanCommand(v))
	cmd.AddCommand(newValidateCommand(v))
	cmd.AddCommand(newHealthCommand(v))
	cmd.AddCommand(newServeCommand(v))

	return cmd
}

func initConfig(cmd *cobra.Command, v *viper.Viper) {
	if cfgFile, _ := cmd.PersistentFlags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("agentctl")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.agentos")
		}
	}
	v.SetEnvPrefix("AGENTOS")
	v.AutomaticEnv()
	_ = v.ReadInConfig() // a missing config file is fine, flags and env cover it
}

// control bundles the components a catalog-level command needs.
type control struct {
	catalog *store.SQLCatalog
	facade  *agentos.Orchestrator
	logger  agentos.Logger
}

// openControl builds a facade over the configured catalog with an empty
// registry: agentctl never hosts live modules itself.
func openControl(v *viper.Viper) (*control, error) {
	logger := agentos.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	catalog, err := store.Open(v.GetString("catalog"))
	if err != nil {
		return nil, err
	}

	registry := agentos.NewRegistry()
	reader := agentos.NewManifestReader(logger)
	broker := agentos.NewEventBroker(logger)
	manager := agentos.NewManager(reader, catalog, registry, broker, logger, v.GetStringSlice("roots")...)
	health := agentos.NewHealthAggregator(registry, logger, agentos.HealthAggregatorConfig{})
	facade := agentos.NewOrchestrator(registry, catalog, manager, health, logger)

	return &control{catalog: catalog, facade: facade, logger: logger}, nil
}

func (c *control) Close() {
	if err := c.catalog.Close(); err != nil {
		c.logger.Error("Failed to close catalog", "error", err)
	}
}
