package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskAssigneeEmpty is returned when a task's assignee is empty or nil.
	ErrTaskAssigneeEmpty = errors.New("task assignee cannot be empty")

	// ErrTaskCreatorEmpty is returned when a task's creator is empty or nil.
	ErrTaskCreatorEmpty = errors.New("task creator cannot be empty")

	// ErrInvalidPriority is returned when a task priority is not a known value.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidStatus is returned when a task status is not a known value.
	ErrInvalidStatus = errors.New("invalid task status")
)

// Priority represents how urgent a task is.
type Priority string

// Possible task priority values
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status represents the current state of a task.
type Status string

// Possible task status values
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParsePriority normalizes a raw priority string to a Priority value.
// Matching is case-insensitive. An empty string yields the default medium.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.ToLower(raw)) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium, "":
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", ErrInvalidPriority
	}
}

// ParseStatus normalizes a raw status string to a Status value.
// Matching is case-insensitive. An empty string yields the default pending.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(raw)) {
	case StatusPending, "":
		return StatusPending, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Task represents a unit of work assigned to a user.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  uuid.UUID  `json:"assigned_to"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with the given fields. Priority defaults to
// medium and status to pending when empty. It generates a new UUID for the
// task ID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(
	title, description string,
	priority Priority,
	status Status,
	dueDate *time.Time,
	assignedTo, createdBy uuid.UUID,
) (*Task, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if status == "" {
		status = StatusPending
	}

	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      status,
		DueDate:     dueDate,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrTaskTitleEmpty
	}

	if t.AssignedTo == uuid.Nil {
		return ErrTaskAssigneeEmpty
	}

	if t.CreatedBy == uuid.Nil {
		return ErrTaskCreatorEmpty
	}

	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return ErrInvalidPriority
	}

	switch t.Status {
	case StatusPending, StatusInProgress, StatusCompleted:
	default:
		return ErrInvalidStatus
	}

	return nil
}

// TaskPatch describes a partial update to a task. Nil fields are untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *time.Time
}

// Apply merges the patch into the task and refreshes the update timestamp.
// Returns an error if the patched task fails validation; the task is left
// unmodified in that case.
func (t *Task) Apply(patch TaskPatch) error {
	updated := *t
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.DueDate != nil {
		updated.DueDate = patch.DueDate
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = time.Now().UTC()
	*t = updated
	return nil
}
