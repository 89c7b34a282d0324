// Package main implements a data seeding command that bulk-inserts
// randomized tasks for load and demo purposes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tratoli/task-api/internal/config"
	"github.com/tratoli/task-api/internal/domain"
	"github.com/tratoli/task-api/internal/platform/logger"
	"github.com/tratoli/task-api/internal/platform/postgres"
)

// batchSize bounds how many tasks go into a single INSERT statement.
const batchSize = 500

var (
	priorities = []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh}
	statuses   = []domain.Status{domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted}

	verbs   = []string{"Review", "Draft", "Deploy", "Fix", "Document", "Test", "Migrate", "Refactor"}
	objects = []string{"billing report", "release notes", "staging cluster", "login flow", "API docs", "backup job", "user import", "search index"}
)

func main() {
	count := flag.Int("count", 100, "number of tasks to insert")
	users := flag.String("users", "", "comma-separated emails of existing users to spread tasks across")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	if err := run(*count, *users, *seed); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

func run(count int, userList string, seed int64) error {
	if count < 1 {
		return errors.New("count must be positive")
	}
	emails := splitEmails(userList)
	if len(emails) == 0 {
		return errors.New("at least one user email is required (-users)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	ctx := context.Background()
	userStore := postgres.NewPostgresUserStore(db, 0)
	taskStore := postgres.NewPostgresTaskStore(db)

	users := make([]*domain.User, 0, len(emails))
	for _, email := range emails {
		user, err := userStore.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to resolve user %q: %w", email, err)
		}
		users = append(users, user)
	}

	rng := rand.New(rand.NewSource(seed))

	inserted := 0
	for inserted < count {
		n := count - inserted
		if n > batchSize {
			n = batchSize
		}

		batch := make([]*domain.Task, 0, n)
		for i := 0; i < n; i++ {
			task, err := randomTask(rng, users)
			if err != nil {
				return fmt.Errorf("failed to build task: %w", err)
			}
			batch = append(batch, task)
		}

		if err := taskStore.BulkInsert(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		inserted += n
		appLogger.Info("inserted task batch", "batch", n, "total", inserted)
	}

	appLogger.Info("seeding complete", "tasks", inserted, "users", len(users))
	return nil
}

// randomTask builds one task with a random title, priority, status and a
// due date spread across the next two weeks. A small share of tasks get
// no due date at all.
func randomTask(rng *rand.Rand, users []*domain.User) (*domain.Task, error) {
	title := fmt.Sprintf("%s %s", verbs[rng.Intn(len(verbs))], objects[rng.Intn(len(objects))])

	var dueDate *time.Time
	if rng.Intn(10) > 1 {
		due := time.Now().UTC().Add(time.Duration(rng.Intn(14*24)) * time.Hour).Truncate(time.Hour)
		dueDate = &due
	}

	assignee := users[rng.Intn(len(users))]
	creator := users[rng.Intn(len(users))]

	return domain.NewTask(
		title,
		fmt.Sprintf("Auto-generated seed task for %s.", assignee.Name),
		priorities[rng.Intn(len(priorities))],
		statuses[rng.Intn(len(statuses))],
		dueDate,
		assignee.ID,
		creator.ID,
	)
}

func splitEmails(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
