// Package main implements the entry point for the tasker API server: an
// asynchronous task execution service with durable task records, a worker
// pool, and a cache-backed read path.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/tasker-api/internal/config"
	"github.com/phrazzld/tasker-api/internal/platform/logger"
)

// version is reported by the health endpoint and the startup log.
const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)

	slog.Info("configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Worker.Count,
		"queue_size", cfg.Queue.Size,
		"cache_enabled", cfg.Cache.RedisURL != "")

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.runner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}
