package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tratoli/task-api/internal/api/middleware"
	"github.com/tratoli/task-api/internal/cache"
	"github.com/tratoli/task-api/internal/config"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/service"
	"github.com/tratoli/task-api/internal/service/auth"
	"github.com/tratoli/task-api/internal/store"
)

// memUserStore is an in-memory UserStore for handler tests. It hashes
// passwords on create the way the real store does.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		user.HashedPassword = string(hashed)
		user.Password = ""
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

// memTaskStore is an in-memory TaskStore for handler tests. Listing
// ignores filters; filter translation is covered by the store tests.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *memTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) List(_ context.Context, _ store.TaskFilter, page store.Page) (*store.TaskPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	return &store.TaskPage{Tasks: tasks, Total: len(tasks), Page: page.Number, Size: page.Size}, nil
}

func (s *memTaskStore) Report(context.Context) (*store.TaskReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := &store.TaskReport{TasksByPriority: make(map[string]int)}
	for _, task := range s.tasks {
		switch task.Status {
		case domain.StatusCompleted:
			report.CompletedTasks++
		case domain.StatusPending:
			report.PendingTasks++
		}
		report.TasksByPriority[string(task.Priority)]++
	}
	return report, nil
}

func (s *memTaskStore) ExportRows(context.Context) ([]store.ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]store.ExportRow, 0, len(s.tasks))
	for _, task := range s.tasks {
		rows = append(rows, store.ExportRow{
			Title:    task.Title,
			Priority: string(task.Priority),
			Status:   string(task.Status),
			DueDate:  task.DueDate,
		})
	}
	return rows, nil
}

func (s *memTaskStore) ListDueWithin(context.Context, domain.Status, time.Time, time.Time) ([]*domain.Task, error) {
	return nil, nil
}

func (s *memTaskStore) BulkInsert(context.Context, []*domain.Task) error { return nil }

type noopDispatcher struct{}

func (noopDispatcher) DispatchAssignment(uuid.UUID) error { return nil }

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(string, json.RawMessage) {}

// apiFixture wires real handlers, middleware and router over in-memory
// stores so tests exercise the full HTTP surface.
type apiFixture struct {
	router     chi.Router
	users      *memUserStore
	tasks      *memTaskStore
	jwtService auth.JWTService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-jwt-secret-that-is-32-chars-long",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.NoError(t, err)

	users := newMemUserStore()
	tasks := newMemTaskStore()
	taskService := service.NewTaskService(
		tasks, users, cache.NewListCache(16, time.Minute), noopDispatcher{}, noopBroadcaster{}, nil)

	authHandler := NewAuthHandler(users, jwtService, auth.NewBcryptVerifier())
	userHandler := NewUserHandler(users)
	taskHandler := NewTaskHandler(taskService, nil)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
		})
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/detail", userHandler.Profile)
			r.Put("/detail", userHandler.UpdateProfile)
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/report", taskHandler.Report)
				r.Get("/export", taskHandler.Export)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})
		})
	})

	return &apiFixture{router: r, users: users, tasks: tasks, jwtService: jwtService}
}

// registerUser creates a user directly in the store and returns it with a
// valid Bearer header.
func (f *apiFixture) registerUser(t *testing.T, name, email, password string) (*domain.User, string) {
	t.Helper()

	user, err := domain.NewUser(name, email, password)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))

	token, err := f.jwtService.GenerateToken(context.Background(), user.ID)
	require.NoError(t, err)
	return user, "Bearer " + token
}
