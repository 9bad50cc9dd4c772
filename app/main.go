package main

import (
	"os"

	"github.com/spf13/cobra"

	"statuspage/app/internal/config"
	"statuspage/app/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "statuspage",
	Short:         "Aggregate per-service uptime logs into 30-day status summaries",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newAggregateCmd(), newProbeCmd())
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal().Err(err).Msg("statuspage failed")
	}
}

// setup loads configuration and initialises the global logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.InitWriter(logger.Config{Level: cfg.LogLevel, Debug: cfg.LogDebug}, os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}
