package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasker-api/internal/cache"
	"github.com/phrazzld/tasker-api/internal/config"
	"github.com/phrazzld/tasker-api/internal/platform/gemini"
	"github.com/phrazzld/tasker-api/internal/platform/metrics"
	"github.com/phrazzld/tasker-api/internal/platform/openmeteo"
	"github.com/phrazzld/tasker-api/internal/platform/postgres"
	redisplatform "github.com/phrazzld/tasker-api/internal/platform/redis"
	"github.com/phrazzld/tasker-api/internal/service"
	"github.com/phrazzld/tasker-api/internal/task"
)

// application bundles the wired dependencies of a running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisCache  *redisplatform.Cache // nil when no cache backend is configured
	outputCache cache.Cache
	queue       *task.Queue
	runner      *task.TaskRunner
	taskService service.TaskService
}

// newApplication wires every component: database and schema, output cache,
// external clients, the kind registry, the queue, the runner, and the task
// service.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// The output cache degrades to a no-op when Redis is not configured;
	// every read then falls through to the store.
	app.outputCache = cache.Noop{}
	if cfg.Cache.RedisURL != "" {
		redisCache, err := redisplatform.New(cfg.Cache.RedisURL, logger)
		if err != nil {
			closeQuietly(db, logger)
			return nil, fmt.Errorf("failed to set up output cache: %w", err)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("output cache unreachable at startup, continuing", "error", err)
		}
		app.redisCache = redisCache
		app.outputCache = redisCache
	}

	promptClient, err := gemini.New(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to set up prompt client: %w", err)
	}
	weatherClient := openmeteo.New(logger)

	registry := task.NewRegistry(cfg.Tasks, promptClient, weatherClient)
	taskStore := postgres.NewTaskStore(db)

	app.queue = task.NewQueue(cfg.Queue.Size, logger)
	app.runner = task.NewTaskRunner(
		taskStore, app.queue, app.queue, registry, app.outputCache, cfg.Worker, logger)
	app.taskService = service.NewTaskService(
		taskStore, app.queue, registry, app.outputCache, cfg.Cache.TTL, logger)

	metrics.Init()

	logger.Info("application initialized")
	return app, nil
}

// cleanup releases resources in reverse dependency order. Safe to call on a
// partially initialized application.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.queue != nil {
		app.queue.Close()
	}
	if app.redisCache != nil {
		if err := app.redisCache.Close(); err != nil {
			app.logger.Error("failed to close cache connection", "error", err)
		}
	}
	if app.db != nil {
		closeQuietly(app.db, app.logger)
	}
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database connection", "error", err)
	}
}
