package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bjaus/nest"
	"github.com/bjaus/nest/metrics"
)

const specPath = "/api/v1/api-docs"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the example server",
	Long: `Start the example server.

Environment variables override the config file:
  EXAMPLE_SERVER_ADDR        - Listen address (default: localhost:4000)
  EXAMPLE_AUTH_TOKEN         - Admin token (default: password1)
  EXAMPLE_AUTH_JWT_SECRET    - HMAC secret enabling /api/v1/me
  EXAMPLE_COOKIE_SECRET      - Session cookie signing secret
  EXAMPLE_RATELIMIT_RATE     - Requests per second per client (0 disables)
  EXAMPLE_LOG_LEVEL          - debug, info, warn, error
  EXAMPLE_LOG_FORMAT         - json or console
  EXAMPLE_METRICS_ENABLED    - Serve Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stdout)
	handler, err := newServer(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info().Str("addr", cfg.Server.Addr).Str("docs", specPath+"/ui").Msg("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer mounts the API on a chi router next to the operational
// endpoints.
func newServer(cfg *Config, logger zerolog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	slogger := slog.New(newSlogHandler(logger))
	opts := []nest.Option{
		nest.WithLogger(slogger),
		nest.WithMiddleware(nest.RequestID(), nest.Timeout(cfg.Server.Timeout)),
		nest.WithObserver(nest.LogEvents(slogger)),
	}
	if cfg.Metrics.Enabled {
		collector := metrics.NewWithRegistry(reg, "example")
		opts = append(opts, nest.WithObserver(collector.Observe))
	}

	app, err := newAPI(cfg, opts...)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(specPath),
	))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/api/*", app)

	return r, nil
}
