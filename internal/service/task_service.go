package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/tratoli/task-api/internal/cache"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/platform/logger"
	"github.com/tratoli/task-api/internal/realtime"
	"github.com/tratoli/task-api/internal/store"
)

// AssignmentDispatcher is the slice of the notification dispatcher the
// task service needs: queueing an assignment email for a task.
type AssignmentDispatcher interface {
	DispatchAssignment(taskID uuid.UUID) error
}

// Broadcaster publishes task change events to interested subscribers.
type Broadcaster interface {
	Publish(topic string, payload json.RawMessage)
}

// CreateTaskInput carries the fields for creating a task. AssigneeEmail
// must resolve to an existing user.
type CreateTaskInput struct {
	Title         string
	Description   string
	Priority      domain.Priority
	Status        domain.Status
	DueDate       *time.Time
	AssigneeEmail string
}

// UpdateTaskInput carries a partial update. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *domain.Priority
	Status      *domain.Status
	DueDate     *time.Time
}

// TaskService coordinates task commands across the store, the list cache,
// the notification dispatcher and the realtime broadcaster.
type TaskService struct {
	tasks      store.TaskStore
	users      store.UserStore
	listCache  *cache.ListCache
	dispatcher AssignmentDispatcher
	events     Broadcaster
	logger     *slog.Logger
}

// NewTaskService creates a TaskService with its dependencies.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	listCache *cache.ListCache,
	dispatcher AssignmentDispatcher,
	events Broadcaster,
	log *slog.Logger,
) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &TaskService{
		tasks:      tasks,
		users:      users,
		listCache:  listCache,
		dispatcher: dispatcher,
		events:     events,
		logger:     log.With("component", "task_service"),
	}
}

// Create validates the input, resolves the assignee by email, persists the
// task, queues the assignment notification and announces the new task on
// the global topic. Dispatch and broadcast are fire-and-forget: the caller
// gets the created task as soon as it is persisted.
func (s *TaskService) Create(ctx context.Context, creatorID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	assignee, err := s.users.GetByEmail(ctx, input.AssigneeEmail)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NewValidationError("assigned_to",
				fmt.Sprintf("no user with email %q", input.AssigneeEmail), domain.ErrValidation)
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}

	task, err := domain.NewTask(
		input.Title,
		input.Description,
		input.Priority,
		input.Status,
		input.DueDate,
		assignee.ID,
		creatorID,
	)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.dispatcher.DispatchAssignment(task.ID); err != nil {
		// The task is already persisted; a full notification queue must
		// not fail the request.
		log.Warn("assignment notification not queued",
			"task_id", task.ID, "error", err)
	}

	s.broadcast(realtime.GlobalTopic, task, log)

	log.Debug("task created", "task_id", task.ID, "assigned_to", assignee.ID)
	return task, nil
}

// Get retrieves a single task by ID.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Update applies a partial update to a task. Only the task's creator may
// update it; anyone else gets domain.ErrForbidden. The updated task is
// announced on the task's own topic; the global topic carries creations
// only.
func (s *TaskService) Update(ctx context.Context, userID, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != userID {
		return nil, domain.ErrForbidden
	}

	patch := domain.TaskPatch{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      input.Status,
		DueDate:     input.DueDate,
	}
	if err := task.Apply(patch); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.broadcast(realtime.TaskTopic(task.ID), task, log)

	log.Debug("task updated", "task_id", task.ID)
	return task, nil
}

// Delete removes a task. Only the task's creator may delete it.
func (s *TaskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.CreatedBy != userID {
		return domain.ErrForbidden
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	log.Debug("task deleted", "task_id", taskID)
	return nil
}

// List returns one page of tasks matching the filter. Results are served
// from the per-user list cache when a fresh entry exists; otherwise the
// store is queried and the page cached. Query params feed the cache key,
// so equivalent queries share an entry regardless of parameter order.
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, params url.Values, filter store.TaskFilter, page store.Page) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	key := cache.Key(userID, params)
	if cached, ok := s.listCache.Get(key); ok {
		log.Debug("task list cache hit", "key", key)
		return cached, nil
	}

	result, err := s.tasks.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	// Only successful results are cached; errors are never memoized.
	s.listCache.Put(key, result)
	return result, nil
}

// Report aggregates completed/pending counts and a per-priority breakdown.
func (s *TaskService) Report(ctx context.Context) (*store.TaskReport, error) {
	return s.tasks.Report(ctx)
}

// ExportRows returns every task with creator and assignee references
// resolved to email addresses, for the CSV export endpoint.
func (s *TaskService) ExportRows(ctx context.Context) ([]store.ExportRow, error) {
	return s.tasks.ExportRows(ctx)
}

func (s *TaskService) broadcast(topic string, task *domain.Task, log *slog.Logger) {
	payload, err := json.Marshal(task)
	if err != nil {
		log.Error("failed to marshal task event", "task_id", task.ID, "error", err)
		return
	}
	s.events.Publish(topic, payload)
}
