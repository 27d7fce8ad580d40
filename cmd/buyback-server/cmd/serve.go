package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/mailin-buyback/internal/api/handlers"
	mw "github.com/donaldgifford/mailin-buyback/internal/api/middleware"
	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/telemetry"
	"github.com/donaldgifford/mailin-buyback/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and retention scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Error("closing resources", "error", err)
		}
	}()
	cfg, log := a.cfg, a.log

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}

	eng := a.engine()

	sched, err := engine.NewScheduler(eng, cfg.Retention.SweepInterval, logger.Component(log, "scheduler"))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	e := newServer(log, a.store, eng)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "version", Version, "store", cfg.Store.Type)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := e.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down server: %w", err))
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("scheduler did not stop before shutdown timeout")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flushing traces: %w", err))
	}

	log.Info("server stopped")
	return errors.Join(errs...)
}

// newServer assembles the Echo instance: probes and metrics on the root,
// the request and quote API under /api/v1 with its OpenAPI document.
func newServer(log *slog.Logger, pinger handlers.Pinger, eng *engine.Engine) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(
		mw.RequestLog(logger.Component(log, "http")),
		mw.Tracing(nil),
		mw.Metrics(),
		mw.Recovery(log),
	)

	health := handlers.NewHealthHandler(pinger)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Mail-in Buyback API", Version))

	requests := handlers.NewRequestsHandler(eng)
	handlers.RegisterRequestRoutes(api, requests)
	handlers.RegisterActionRoutes(api, requests)
	handlers.RegisterQuoteRoutes(api, handlers.NewQuotesHandler(eng))

	return e
}
