// Package main is the entry point for the item store server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemstore/internal/config"
	"github.com/vyrodovalexey/itemstore/internal/logging"
	"github.com/vyrodovalexey/itemstore/internal/server"
	"github.com/vyrodovalexey/itemstore/internal/store"
	"github.com/vyrodovalexey/itemstore/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fallback().Error("failed to load configuration", zap.Error(err))
		return 1
	}

	// Initialize logger
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logging.Fallback().Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	context.AfterFunc(ctx, func() {
		logger.Info("shutdown signal received")
	})

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// serve wires tracing, the store and the server together and blocks until
// ctx is cancelled or the server fails.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	itemStore := store.NewMemoryStore()
	srv := server.New(cfg, logger, itemStore)

	return srv.Run(ctx)
}

func logConfig(logger *zap.Logger, cfg *config.Config) {
	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.String("log_file", cfg.LogFile),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Int64("max_body_bytes", cfg.MaxBodyBytes),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Bool("cors_enabled", cfg.CORSEnabled),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
		zap.Bool("events_enabled", cfg.EventsEnabled),
		zap.Bool("tracing_enabled", telemetry.Enabled(cfg)),
	)
}
