// Package main is the entry point for the payment gateway API server.
//
// It loads configuration, builds the component graph (database, processor
// client, webhook processor, metrics) and serves the checkout API and the
// processor webhook over HTTP until SIGINT or SIGTERM.
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

	"paygate/internal/api/handlers"
	"paygate/internal/app"
	"paygate/internal/config"
	"paygate/internal/core"
	"paygate/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("paygate API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	comps, err := app.Build(ctx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, logger, serverDeps{
		checkout:       comps.Checkout,
		webhooks:       comps.Webhooks,
		metrics:        comps.Metrics,
		metricsHandler: comps.MetricsHandler,
		probes:         []core.HealthProbe{db.NewPoolProbe(comps.Pool)},
	})
	if err != nil {
		comps.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.OnShutdown = append(srv.OnShutdown, func(context.Context) error {
		comps.Close()
		return nil
	})

	return runHTTPServer(srv, cfg, logger)
}

type serverDeps struct {
	checkout       handlers.CheckoutService
	webhooks       handlers.WebhookProcessor
	metrics        core.MetricsCollector
	metricsHandler http.Handler
	probes         []core.HealthProbe
}

// buildServer wires handlers onto the core chassis and mounts all routes.
func buildServer(cfg *config.Config, logger *slog.Logger, deps serverDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	if deps.metrics != nil {
		srv.Metrics = deps.metrics
	}
	srv.MetricsHandler = deps.metricsHandler
	srv.HealthProbes = deps.probes

	checkoutHandler := handlers.NewCheckoutHandler(deps.checkout, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, checkoutHandler.RegisterRoutes)

	webhookHandler := handlers.NewWebhookHandler(deps.webhooks, cfg.Webhook.MaxBodyBytes, logger)
	srv.PublicRouteRegistrars = append(srv.PublicRouteRegistrars, webhookHandler.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
