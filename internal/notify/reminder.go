package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/tratoli/task-api/internal/domain"
)

// DueTaskSource provides the due-task query the scanner needs.
type DueTaskSource interface {
	ListDueWithin(ctx context.Context, status domain.Status, from, to time.Time) ([]*domain.Task, error)
}

// ReminderDispatcher is the slice of Dispatcher the scanner uses.
type ReminderDispatcher interface {
	DispatchReminder(taskID uuid.UUID) error
}

// ScannerConfig holds configuration for the reminder scanner.
type ScannerConfig struct {
	// Schedule is a standard cron expression, hourly by default.
	Schedule string

	// Window is how far ahead of now a due date must fall to trigger
	// a reminder.
	Window time.Duration
}

// Scanner periodically selects pending tasks nearing their due date and
// feeds one reminder job per task into the dispatcher. Tasks still due
// on the next scan are notified again; there is no sent-reminder mark.
type Scanner struct {
	tasks      DueTaskSource
	dispatcher ReminderDispatcher
	config     ScannerConfig
	cron       *cron.Cron
	logger     *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewScanner creates a new Scanner.
func NewScanner(tasks DueTaskSource, dispatcher ReminderDispatcher, config ScannerConfig, logger *slog.Logger) *Scanner {
	if config.Schedule == "" {
		config.Schedule = "0 * * * *"
	}
	if config.Window <= 0 {
		config.Window = 24 * time.Hour
	}

	return &Scanner{
		tasks:      tasks,
		dispatcher: dispatcher,
		config:     config,
		cron:       cron.New(),
		logger:     logger.With("component", "reminder_scanner"),
		now:        time.Now,
	}
}

// Start registers the scan on the cron schedule and starts the scheduler.
// Scan failures are contained per run and never stop the schedule.
func (s *Scanner) Start() error {
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if err := s.Scan(context.Background()); err != nil {
			s.logger.Error("reminder scan failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("reminder scanner started", "schedule", s.config.Schedule, "window", s.config.Window)
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (s *Scanner) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Scan selects all pending tasks due within [now, now+window) and
// enqueues a reminder for each. A single task failing to enqueue does
// not abort the rest of the scan.
func (s *Scanner) Scan(ctx context.Context) error {
	from := s.now().UTC()
	to := from.Add(s.config.Window)

	tasks, err := s.tasks.ListDueWithin(ctx, domain.StatusPending, from, to)
	if err != nil {
		return fmt.Errorf("failed to select due tasks: %w", err)
	}

	s.logger.Info("reminder scan", "due_tasks", len(tasks), "window_from", from, "window_to", to)

	for _, task := range tasks {
		if err := s.dispatcher.DispatchReminder(task.ID); err != nil {
			s.logger.Error("failed to enqueue reminder",
				"task_id", task.ID,
				"error", err)
		}
	}

	return nil
}
