package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/store"
)

// JobKind identifies what a notification job is about.
type JobKind string

// Possible job kinds
const (
	KindAssignment JobKind = "assignment"
	KindReminder   JobKind = "reminder"
)

// Job is one pending outbound notification. Attempts records how many
// delivery attempts have been made so far.
type Job struct {
	ID         uuid.UUID
	TaskID     uuid.UUID
	Kind       JobKind
	Attempts   int
	EnqueuedAt time.Time
}

// TaskSource provides the task lookup the dispatcher needs.
type TaskSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// UserSource provides the assignee lookup the dispatcher needs.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// DispatcherConfig holds configuration for the notification dispatcher.
type DispatcherConfig struct {
	// QueueSize is the buffer size of the in-memory job queue.
	QueueSize int

	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int

	// MaxAttempts bounds the total delivery attempts per job, first
	// attempt included.
	MaxAttempts int

	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:   256,
		WorkerCount: 2,
		MaxAttempts: 5,
		RetryDelay:  time.Minute,
	}
}

// Dispatcher delivers task notification emails on dedicated worker
// goroutines. Enqueueing is fire-and-forget relative to the caller: a
// mutation request never waits on delivery, and delivery failures are
// retried with a fixed delay up to MaxAttempts, then logged and dropped.
type Dispatcher struct {
	tasks  TaskSource
	users  UserSource
	mailer Mailer

	jobs       chan Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     DispatcherConfig
	logger     *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(tasks TaskSource, users UserSource, mailer Mailer, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		tasks:      tasks,
		users:      users,
		mailer:     mailer,
		jobs:       make(chan Job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "notify_dispatcher"),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop cancels in-flight deliveries and waits for workers to exit.
// Queued jobs that have not started are discarded.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
}

// DispatchAssignment enqueues an assignment notification for the task.
// Returns an error only when the queue is full; the request path treats
// that as a logged drop, never a failure of the mutation itself.
func (d *Dispatcher) DispatchAssignment(taskID uuid.UUID) error {
	return d.enqueue(Job{ID: uuid.New(), TaskID: taskID, Kind: KindAssignment, EnqueuedAt: time.Now().UTC()})
}

// DispatchReminder enqueues a due-date reminder notification for the task.
func (d *Dispatcher) DispatchReminder(taskID uuid.UUID) error {
	return d.enqueue(Job{ID: uuid.New(), TaskID: taskID, Kind: KindReminder, EnqueuedAt: time.Now().UTC()})
}

func (d *Dispatcher) enqueue(job Job) error {
	select {
	case d.jobs <- job:
		d.logger.Debug("notification job enqueued",
			"job_id", job.ID,
			"task_id", job.TaskID,
			"kind", job.Kind)
		return nil
	default:
		return fmt.Errorf("notification queue is full, dropping %s job for task %s", job.Kind, job.TaskID)
	}
}

// worker processes jobs from the queue until the dispatcher stops.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("stopping worker", "worker_id", id)
			return
		case job := <-d.jobs:
			d.process(&job, id)
		}
	}
}

// process runs one job to completion: delivery with fixed-delay retries
// up to MaxAttempts total. Exhaustion is terminal for this job only and
// never surfaces beyond a log line.
func (d *Dispatcher) process(job *Job, workerID int) {
	logger := d.logger.With(
		"job_id", job.ID,
		"task_id", job.TaskID,
		"kind", job.Kind,
		"worker_id", workerID,
	)

	backoff := retry.WithMaxRetries(uint64(d.config.MaxAttempts-1), retry.NewConstant(d.config.RetryDelay))

	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		job.Attempts++

		sendErr := d.send(ctx, job)
		if sendErr == nil {
			return nil
		}

		// A deleted task makes the job permanently pointless.
		if store.IsNotFoundError(sendErr) {
			return sendErr
		}

		logger.Warn("delivery attempt failed",
			"attempt", job.Attempts,
			"error", sendErr)
		return retry.RetryableError(sendErr)
	})

	switch {
	case err == nil:
		logger.Info("notification sent", "attempts", job.Attempts)
	case store.IsNotFoundError(err):
		logger.Info("dropping job for missing task", "attempts", job.Attempts)
	default:
		logger.Error("notification permanently failed",
			"attempts", job.Attempts,
			"error", err)
	}
}

// send performs a single delivery attempt: resolve the task and its
// assignee, compose the message, hand it to the mailer.
func (d *Dispatcher) send(ctx context.Context, job *Job) error {
	task, err := d.tasks.GetByID(ctx, job.TaskID)
	if err != nil {
		return err
	}

	assignee, err := d.users.GetByID(ctx, task.AssignedTo)
	if err != nil {
		return err
	}

	subject, body := composeMessage(job.Kind, task)
	return d.mailer.Send(ctx, assignee.Email, subject, body)
}

func composeMessage(kind JobKind, task *domain.Task) (subject, body string) {
	switch kind {
	case KindReminder:
		return "Task Deadline Approaching", fmt.Sprintf("Your task '%s' is due soon.", task.Title)
	default:
		return "Task Assigned", fmt.Sprintf("You have been assigned a new task: %s", task.Title)
	}
}
