package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/vehicle-valuation/config"
	"github.com/upb/vehicle-valuation/internal/observability"
	"go.uber.org/zap"
)

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "valuation-api",
		Short:         "Vehicle valuation service with provider failover",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level defined in config")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newValuateCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load reads configuration and builds the logger
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(cmd.Context(), o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}
