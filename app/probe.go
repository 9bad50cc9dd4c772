package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"statuspage/app/internal/database"
	"statuspage/app/internal/logger"
)

func newProbeCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check every registered service and record samples in the sqlite store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			prober := newProber(cfg, db, nil)
			if once {
				n, err := prober.RunOnce(cmd.Context())
				logger.Info().Int("stored", n).Msg("probe round complete")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info().Dur("interval", cfg.PollInterval).Str("db", cfg.DBPath).Msg("probe loop started")
			return prober.Run(ctx, cfg.PollInterval)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single probe round and exit")
	return cmd
}
