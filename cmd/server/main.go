// Package main implements the entry point for the task API server, which
// provides authenticated task management with realtime updates and
// outbound email notifications.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/tratoli/task-api/internal/config"
	"github.com/tratoli/task-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run loads configuration, wires the application and serves HTTP until a
// shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}

	if err := runMigrations(db); err != nil {
		return err
	}
	appLogger.Info("database migrations applied")

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		return err
	}

	if err := app.startWorkers(); err != nil {
		return err
	}

	return app.startHTTPServer(context.Background(), app.setupRouter())
}
