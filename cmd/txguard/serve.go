package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	apihttp "github.com/kshitij1706/fraud-anomaly-detection/internal/api/http"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/artifacts"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/dashboard"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/metrics"
	"github.com/kshitij1706/fraud-anomaly-detection/internal/scoring"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr        string
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction endpoint and the batch dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(func(c *config.Config) {
				if addr != "" {
					c.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger, !noDashboard)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "serve only /predict, /healthz and /metrics")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *logrus.Logger, withDashboard bool) error {
	bundle, err := artifacts.LoadFromConfig(ctx, cfg.Artifacts)
	if err != nil {
		logger.WithError(err).Error("model or scaler could not be loaded, refusing to serve")
		return err
	}
	logger.WithFields(logrus.Fields{
		"model":    bundle.ModelLocation,
		"scaler":   bundle.ScalerLocation,
		"features": bundle.Model.NFeatures(),
	}).Info("artifacts loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	m.SetModelFeatures(bundle.Model.NFeatures())

	scorer := scoring.NewFromBundle(bundle)

	routes := apihttp.RouterConfig{
		Scorer:   scorer,
		Metrics:  m,
		Logger:   logger,
		Gatherer: reg,
	}
	if withDashboard {
		dash, err := dashboard.New(scorer, cfg.Dashboard, m, logger)
		if err != nil {
			return err
		}
		routes.Dashboard = dash
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apihttp.NewRouter(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("listening")
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
