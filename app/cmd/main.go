package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archdiagram/app/bootstrap"
	"archdiagram/app/config"
	"archdiagram/internal/infrastructure/metrics"
)

func main() {
	// load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "err", err)
		log.Fatalf("bootstrap: %v", err)
	}

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// /metrics is always on the main router; METRICS_ADDR adds a private listener.
	if cfg.Server.MetricsAddr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Server.MetricsAddr)
			if err := metrics.StartMetricsServer(cfg.Server.MetricsAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	// Start HTTP server
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	logger.Info("closing backends")
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("backend close error", "err", err)
	}

	logger.Info("service stopped")
}
