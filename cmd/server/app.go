package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/gnicolai/AI-Courses-Generator/internal/api"
	"github.com/gnicolai/AI-Courses-Generator/internal/config"
	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/filestore"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/postgres"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/provider"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/redis"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/gnicolai/AI-Courses-Generator/internal/service/auth"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/gnicolai/AI-Courses-Generator/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	courseStore     store.CourseStore
	checkpointStore store.CheckpointStore
	taskStore       task.TaskStore

	client     generation.Client
	jwtService auth.JWTService

	eventEmitter *events.InMemoryEventEmitter
	controller   *expansion.Controller
	taskRunner   *task.Runner

	courseService     *service.CourseService
	generationService *service.GenerationService
	expansionService  *service.ExpansionService

	healthChecks map[string]api.HealthCheck
}

// newApplication builds the application on an open database connection.
// On failure the caller still owns db.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		healthChecks: map[string]api.HealthCheck{"database": db.PingContext},
	}

	app.courseStore = postgres.NewPostgresCourseStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	if err := app.setupCheckpointStore(ctx); err != nil {
		return nil, err
	}

	client, err := provider.New(ctx, cfg.LLM, provider.Options{
		Preferences: config.NewPreferenceStore(cfg.LLM),
		Logger:      logger.With("component", "llm_client"),
	})
	if err != nil {
		app.closeRedis()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	app.client = client
	logger.Info("LLM client initialized", "provider", client.Provider())

	if err := app.wire(); err != nil {
		app.closeRedis()
		return nil, err
	}
	return app, nil
}

// setupCheckpointStore selects the checkpoint backend named by
// expansion.checkpoint_backend.
func (app *application) setupCheckpointStore(ctx context.Context) error {
	backend := app.config.Expansion.CheckpointBackend
	switch backend {
	case "postgres":
		app.checkpointStore = postgres.NewPostgresCheckpointStore(app.db, app.logger)

	case "redis":
		if app.config.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis checkpoint backend")
		}
		client, err := redis.Connect(ctx, app.config.Redis.URL)
		if err != nil {
			return err
		}
		app.redis = client
		app.checkpointStore = redis.NewCheckpointStore(client, app.logger)
		app.healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}

	case "file":
		fs, err := filestore.NewCheckpointStore(app.config.Expansion.CheckpointDir, app.logger)
		if err != nil {
			return err
		}
		app.checkpointStore = fs

	default:
		return fmt.Errorf("unknown checkpoint backend %q", backend)
	}

	app.logger.Info("Checkpoint store initialized", "backend", backend)
	return nil
}

// wire builds everything above the stores and the client.
func (app *application) wire() error {
	cfg := app.config
	logger := app.logger

	if cfg.Auth.JWTSecret != "" {
		jwtService, err := auth.NewJWTService(cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		app.jwtService = jwtService
		logger.Info("API authentication enabled")
	} else {
		logger.Warn("auth.jwt_secret is not set, the API is unauthenticated")
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	jobs := expansion.NewMemoryJobStore()
	app.controller = expansion.NewController(
		app.courseStore,
		app.checkpointStore,
		app.client,
		jobs,
		app.eventEmitter,
		expansion.Config{
			PollInterval:                cfg.Expansion.PollInterval,
			MaxAttempts:                 cfg.Expansion.MaxAttempts,
			AcceptShorterOnFinalAttempt: cfg.Expansion.AcceptShorterOnFinalAttempt,
			Logger:                      logger,
		},
	)

	app.taskRunner = task.NewRunner(app.taskStore, task.RunnerConfig{
		WorkerCount: cfg.Expansion.Workers,
		QueueSize:   cfg.Expansion.QueueSize,
	}, logger)

	factory := task.NewExpansionTaskFactory(app.controller, logger)
	app.taskRunner.RegisterFactory(task.TaskTypeExpansion, factory.Restore)

	app.eventEmitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger))

	var err error
	app.courseService, err = service.NewCourseService(app.courseStore, app.checkpointStore, app.controller, logger)
	if err != nil {
		return fmt.Errorf("failed to create course service: %w", err)
	}
	app.generationService, err = service.NewGenerationService(app.courseStore, app.client, app.controller, logger)
	if err != nil {
		return fmt.Errorf("failed to create generation service: %w", err)
	}
	app.expansionService, err = service.NewExpansionService(app.controller, app.eventEmitter, logger)
	if err != nil {
		return fmt.Errorf("failed to create expansion service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return nil
}

// startBackground restores interrupted expansion jobs from their checkpoints,
// then starts the workers, which requeue the tasks left unfinished.
func (app *application) startBackground(ctx context.Context) error {
	if _, err := app.controller.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover expansion jobs: %w", err)
	}
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return nil
}

// Run starts the background workers and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.startBackground(ctx); err != nil {
		app.cleanup()
		return err
	}
	return app.startHTTPServer(ctx, app.setupRouter())
}

// verifyAPIKey prints the provider key check as JSON. An invalid key is an
// error so that the exit status reflects it.
func (app *application) verifyAPIKey(ctx context.Context, out io.Writer) error {
	status, err := app.generationService.VerifyAPIKey(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return err
	}
	if !status.Valid {
		return fmt.Errorf("%s API key check failed: %s", app.client.Provider(), status.Kind)
	}
	return nil
}

// cleanup stops the workers and closes connections.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	app.closeRedis()
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}

func (app *application) closeRedis() {
	if app.redis == nil {
		return
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("Error closing Redis connection", "error", err)
	}
	app.redis = nil
}
