package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tratoli/task-api/internal/cache"
	"github.com/tratoli/task-api/internal/config"
	"github.com/tratoli/task-api/internal/notify"
	"github.com/tratoli/task-api/internal/platform/postgres"
	"github.com/tratoli/task-api/internal/realtime"
	"github.com/tratoli/task-api/internal/service"
	"github.com/tratoli/task-api/internal/service/auth"
	"github.com/tratoli/task-api/internal/store"
)

// eventBufferSize is the per-subscriber channel depth for realtime events.
const eventBufferSize = 16

// application holds the wired dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	taskService *service.TaskService
	hub         *realtime.Hub
	wsHandler   *realtime.WSHandler
	dispatcher  *notify.Dispatcher
	scanner     *notify.Scanner
}

// newApplication wires every service from the loaded configuration and an
// open database connection. Background workers are not started yet; the
// caller starts them once wiring succeeded.
func newApplication(cfg *config.Config, log *slog.Logger, db *sql.DB) (*application, error) {
	userStore := postgres.NewPostgresUserStore(db, 0)
	taskStore := postgres.NewPostgresTaskStore(db)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	mailer, err := notify.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	dispatcher := notify.NewDispatcher(taskStore, userStore, mailer, notify.DispatcherConfig{
		QueueSize:   cfg.Dispatch.QueueSize,
		WorkerCount: cfg.Dispatch.WorkerCount,
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Dispatch.RetryDelaySeconds) * time.Second,
	}, log)

	scanner := notify.NewScanner(taskStore, dispatcher, notify.ScannerConfig{
		Schedule: cfg.Reminder.Schedule,
		Window:   time.Duration(cfg.Reminder.WindowHours) * time.Hour,
	}, log)

	hub := realtime.NewHub(eventBufferSize, log)
	listCache := cache.NewListCache(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	taskService := service.NewTaskService(taskStore, userStore, listCache, dispatcher, hub, log)

	return &application{
		config:           cfg,
		logger:           log,
		db:               db,
		userStore:        userStore,
		taskStore:        taskStore,
		jwtService:       jwtService,
		passwordVerifier: auth.NewBcryptVerifier(),
		taskService:      taskService,
		hub:              hub,
		wsHandler:        realtime.NewWSHandler(hub, log),
		dispatcher:       dispatcher,
		scanner:          scanner,
	}, nil
}

// startWorkers launches the notification workers and the reminder cron.
func (app *application) startWorkers() error {
	app.dispatcher.Start()
	if err := app.scanner.Start(); err != nil {
		app.dispatcher.Stop()
		return fmt.Errorf("failed to start reminder scanner: %w", err)
	}
	return nil
}

// cleanup stops background work and releases resources, in reverse
// dependency order: no new reminder jobs, then drain the queue, then
// close the database.
func (app *application) cleanup() {
	app.scanner.Stop()
	app.dispatcher.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
