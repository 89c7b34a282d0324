package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tratoli/task-api/internal/domain"
)

// TaskFilter describes the optional predicates a task list query may carry.
// Zero values mean "no constraint".
type TaskFilter struct {
	// Title matches as a case-insensitive substring.
	Title string

	// Description matches as a case-insensitive substring.
	Description string

	// Priority matches exactly, case-insensitive.
	Priority string

	// Status matches exactly, case-insensitive.
	Status string

	// DueDate matches any task due on the given calendar day.
	DueDate *time.Time

	// AssigneeEmail matches the assigned user's email exactly,
	// case-insensitive.
	AssigneeEmail string
}

// Page describes pagination for a list query.
type Page struct {
	Number int
	Size   int
}

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// TaskReport aggregates task counts for the report endpoint.
type TaskReport struct {
	CompletedTasks  int            `json:"completed_tasks"`
	PendingTasks    int            `json:"pending_tasks"`
	TasksByPriority map[string]int `json:"tasks_by_priority"`
}

// ExportRow is one row of the CSV export, with user references resolved
// to email addresses.
type ExportRow struct {
	Title          string
	Description    string
	Priority       string
	DueDate        *time.Time
	Status         string
	CreatedByEmail string
	AssignedEmail  string
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of tasks matching the filter, newest first,
	// along with the total number of matching tasks.
	List(ctx context.Context, filter TaskFilter, page Page) (*TaskPage, error)

	// Report aggregates completed/pending counts and a per-priority
	// breakdown across all tasks.
	Report(ctx context.Context) (*TaskReport, error)

	// ExportRows returns every task joined with creator and assignee
	// emails, for the CSV export.
	ExportRows(ctx context.Context) ([]ExportRow, error)

	// ListDueWithin returns tasks with the given status whose due date
	// falls inside [from, to).
	ListDueWithin(ctx context.Context, status domain.Status, from, to time.Time) ([]*domain.Task, error)

	// BulkInsert saves many tasks in a single statement. Used by the
	// data seeding command.
	BulkInsert(ctx context.Context, tasks []*domain.Task) error
}
