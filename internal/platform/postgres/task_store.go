package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db store.DBTX
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

const taskColumns = "id, title, description, priority, status, due_date, assigned_to, created_by, created_at, updated_at"

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.AssignedTo,
		task.CreatedBy,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, status = $4,
		    due_date = $5, assigned_to = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.AssignedTo,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter, page store.Page) (*store.TaskPage, error) {
	where, args := buildTaskFilter(filter)

	countQuery := `SELECT COUNT(*) FROM tasks t JOIN users a ON a.id = t.assigned_to` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	if page.Size <= 0 {
		page.Size = 20
	}
	if page.Number <= 0 {
		page.Number = 1
	}
	offset := (page.Number - 1) * page.Size

	listQuery := fmt.Sprintf(`
		SELECT t.id, t.title, t.description, t.priority, t.status, t.due_date,
		       t.assigned_to, t.created_by, t.created_at, t.updated_at
		FROM tasks t JOIN users a ON a.id = t.assigned_to
		%s
		ORDER BY t.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, page.Size, offset)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0, page.Size)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return &store.TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  page.Number,
		Size:  page.Size,
	}, nil
}

// buildTaskFilter translates a TaskFilter into a WHERE clause with
// positional arguments. An empty filter yields an empty clause.
func buildTaskFilter(filter store.TaskFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Title != "" {
		add("t.title ILIKE '%%' || $%d || '%%'", filter.Title)
	}
	if filter.Description != "" {
		add("t.description ILIKE '%%' || $%d || '%%'", filter.Description)
	}
	if filter.Priority != "" {
		add("LOWER(t.priority) = LOWER($%d)", filter.Priority)
	}
	if filter.Status != "" {
		add("LOWER(t.status) = LOWER($%d)", filter.Status)
	}
	if filter.DueDate != nil {
		add("t.due_date::date = $%d::date", *filter.DueDate)
	}
	if filter.AssigneeEmail != "" {
		add("LOWER(a.email) = LOWER($%d)", filter.AssigneeEmail)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Report implements store.TaskStore.Report
func (s *PostgresTaskStore) Report(ctx context.Context) (*store.TaskReport, error) {
	report := &store.TaskReport{TasksByPriority: make(map[string]int)}

	statusQuery := `SELECT status, COUNT(*) FROM tasks GROUP BY status`
	rows, err := s.db.QueryContext(ctx, statusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		switch domain.Status(status) {
		case domain.StatusCompleted:
			report.CompletedTasks = count
		case domain.StatusPending:
			report.PendingTasks = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	priorityQuery := `SELECT priority, COUNT(*) FROM tasks GROUP BY priority`
	prows, err := s.db.QueryContext(ctx, priorityQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	defer func() { _ = prows.Close() }()

	for prows.Next() {
		var priority string
		var count int
		if err := prows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority count: %w", err)
		}
		report.TasksByPriority[priority] = count
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate priority counts: %w", err)
	}

	return report, nil
}

// ExportRows implements store.TaskStore.ExportRows
func (s *PostgresTaskStore) ExportRows(ctx context.Context) ([]store.ExportRow, error) {
	query := `
		SELECT t.title, t.description, t.priority, t.due_date, t.status,
		       c.email, a.email
		FROM tasks t
		JOIN users c ON c.id = t.created_by
		JOIN users a ON a.id = t.assigned_to
		ORDER BY t.created_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.ExportRow
	for rows.Next() {
		var row store.ExportRow
		if err := rows.Scan(
			&row.Title,
			&row.Description,
			&row.Priority,
			&row.DueDate,
			&row.Status,
			&row.CreatedByEmail,
			&row.AssignedEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate export rows: %w", err)
	}

	return out, nil
}

// ListDueWithin implements store.TaskStore.ListDueWithin
func (s *PostgresTaskStore) ListDueWithin(ctx context.Context, status domain.Status, from, to time.Time) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND due_date >= $2 AND due_date < $3
		ORDER BY due_date
	`

	rows, err := s.db.QueryContext(ctx, query, status, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due tasks: %w", err)
	}

	return tasks, nil
}

// BulkInsert implements store.TaskStore.BulkInsert
func (s *PostgresTaskStore) BulkInsert(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO tasks (" + taskColumns + ") VALUES ")

	args := make([]any, 0, len(tasks)*10)
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 10
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))
		args = append(args,
			task.ID, task.Title, task.Description, task.Priority, task.Status,
			task.DueDate, task.AssignedTo, task.CreatedBy, task.CreatedAt, task.UpdatedAt,
		)
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk insert tasks: %w", err)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.DueDate,
		&task.AssignedTo,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &task, nil
}
