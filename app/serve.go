package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"statuspage/app/internal/auth"
	"statuspage/app/internal/checker"
	"statuspage/app/internal/config"
	"statuspage/app/internal/database"
	"statuspage/app/internal/handlers"
	"statuspage/app/internal/logger"
	"statuspage/app/internal/metrics"
	"statuspage/app/internal/ratelimit"
)

func newServeCmd() *cobra.Command {
	var withProbe bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/status, /healthz and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			log := logger.WithComponent("server")

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.NewMetrics()
			if err := m.RegisterMetrics(reg); err != nil {
				return err
			}

			p, err := buildPipeline(cfg, m, logger.Get())
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var prober *checker.Prober
			if cfg.LogSource == "sqlite" {
				prober = newProber(cfg, p.DB, m)
				if withProbe {
					go func() { _ = prober.Run(ctx, cfg.PollInterval) }()
					log.Info().Dur("interval", cfg.PollInterval).Msg("probe loop started")
				}
			}

			apiLimiter := ratelimit.New(ratelimit.Config{
				TokensPerMinute: cfg.RateLimitPerMin,
				ErrorMessage:    "Too many requests. Please slow down.",
			})
			defer apiLimiter.Stop()
			loginLimiter := ratelimit.New(ratelimit.Config{
				TokensPerMinute: 10,
				ErrorMessage:    "Too many failed login attempts. Please try again later.",
			})
			defer loginLimiter.Stop()

			deps := handlers.Deps{
				Status:        p.Aggregator,
				StatusTimeout: statusTimeout(cfg),
				Failures:      p.Fetcher,
				Cache:         p.Cached,
				Auth:          auth.NewAuth(cfg.AdminUser, cfg.AdminHash, loginLimiter),
				Limiter:       apiLimiter,
				Gatherer:      reg,
				Log:           logger.WithComponent("http"),
			}
			if prober != nil {
				deps.Prober = prober
			}
			if !deps.Auth.Enabled() {
				log.Warn().Msg("no admin password configured; admin endpoints disabled")
			}

			srv := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      handlers.SetupRoutes(deps),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: statusTimeout(cfg) + 15*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("port", cfg.Port).
					Str("source", cfg.LogSource).
					Str("cache", cfg.CacheBackend).
					Int("services", len(cfg.Services)).
					Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&withProbe, "probe", false, "also run the probe loop (LOG_SOURCE=sqlite only)")
	return cmd
}

func newProber(cfg *config.Config, db *database.Store, m *metrics.Metrics) *checker.Prober {
	return &checker.Prober{
		Store:     db,
		Services:  cfg.Services,
		Retention: cfg.Retention,
		Metrics:   m,
		Log:       logger.WithComponent("probe"),
	}
}
