package api

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tratoli/task-api/internal/api/shared"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/platform/logger"
	"github.com/tratoli/task-api/internal/service"
	"github.com/tratoli/task-api/internal/store"
)

// Pagination bounds for the list endpoint.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TaskHandler handles task-related API requests.
type TaskHandler struct {
	taskService *service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService *service.TaskService, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      log.With("component", "task_handler"),
	}
}

// List handles GET /api/tasks. Filter, sort and pagination come from the
// query string; results may be served from the per-user list cache.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	filter, page, err := parseListQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.taskService.List(r.Context(), userID, r.URL.Query(), filter, page)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, pageToResponse(result))
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Create(r.Context(), userID, service.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      priority,
		Status:        status,
		DueDate:       req.DueDate,
		AssigneeEmail: req.AssignedTo,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("task created via API", "task_id", task.ID, "user_id", userID)
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Update handles PUT /api/tasks/{id}. Only the creator may update a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	input := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		priority, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		input.Priority = &priority
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		input.Status = &status
	}

	task, err := h.taskService.Update(r.Context(), userID, taskID, input)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Delete handles DELETE /api/tasks/{id}. Only the creator may delete a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /api/tasks/report.
func (h *TaskHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.taskService.Report(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReportResponse{
		CompletedTasks:  report.CompletedTasks,
		PendingTasks:    report.PendingTasks,
		TasksByPriority: report.TasksByPriority,
	})
}

// Export handles GET /api/tasks/export, streaming every task as a CSV
// attachment with user references resolved to email addresses.
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.taskService.ExportRows(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="tasks_export.csv"`)

	writer := csv.NewWriter(w)
	record := []string{"title", "description", "priority", "due_date", "status", "created_by", "assigned_to"}
	if err := writer.Write(record); err != nil {
		h.logger.Error("failed to write CSV header", "error", err)
		return
	}

	for _, row := range rows {
		dueDate := ""
		if row.DueDate != nil {
			dueDate = row.DueDate.UTC().Format(time.RFC3339)
		}
		record = []string{
			row.Title,
			row.Description,
			row.Priority,
			dueDate,
			row.Status,
			row.CreatedByEmail,
			row.AssignedEmail,
		}
		if err := writer.Write(record); err != nil {
			h.logger.Error("failed to write CSV row", "error", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("failed to flush CSV export", "error", err)
	}
}

// parseListQuery extracts the filter predicates and pagination from the
// list endpoint's query string.
func parseListQuery(r *http.Request) (store.TaskFilter, store.Page, error) {
	query := r.URL.Query()

	filter := store.TaskFilter{
		Title:         query.Get("title"),
		Description:   query.Get("description"),
		Priority:      query.Get("priority"),
		Status:        query.Get("status"),
		AssigneeEmail: query.Get("assigned_to"),
	}

	if raw := query.Get("due_date"); raw != "" {
		dueDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return store.TaskFilter{}, store.Page{},
				domain.NewValidationError("due_date", "must be YYYY-MM-DD", domain.ErrValidation)
		}
		filter.DueDate = &dueDate
	}

	page := store.Page{Number: 1, Size: defaultPageSize}
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return store.TaskFilter{}, store.Page{},
				domain.NewValidationError("page", "must be a positive integer", domain.ErrValidation)
		}
		page.Number = n
	}
	if raw := query.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return store.TaskFilter{}, store.Page{},
				domain.NewValidationError("page_size", "must be a positive integer", domain.ErrValidation)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		page.Size = n
	}

	return filter, page, nil
}
