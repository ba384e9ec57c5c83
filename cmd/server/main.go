// Package main implements the course generator server. It serves the HTTP
// API for course creation, chapter generation and chapter expansion, and
// runs expansion jobs on background workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnicolai/AI-Courses-Generator/internal/config"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Run a migration command: up, down, status, version")
	verifyKey := flag.Bool("verify-key", false, "Check the configured provider API key and exit")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger, *migrateCmd, *verifyKey); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *slog.Logger, migrateCmd string, verifyKey bool) error {
	db, err := setupAppDatabase(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		appLogger.Info("Executing migrations", "command", migrateCmd)
		return postgres.Migrate(ctx, db, migrateCmd, appLogger)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if verifyKey {
		defer app.cleanup()
		return app.verifyAPIKey(ctx, os.Stdout)
	}

	return app.Run(ctx)
}

// loadAppConfig loads the configuration and logs its non-secret parts.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"provider", cfg.LLM.Provider,
		"checkpoint_backend", cfg.Expansion.CheckpointBackend)
	if cfg.Auth.JWTSecret != "" {
		slog.Debug("Auth configuration", "jwt_secret_present", true)
	}
	return cfg, nil
}
