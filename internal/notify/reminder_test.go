package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tratoli/task-api/internal/domain"
)

// fakeDueSource applies the scanner's predicate to a fixed task set,
// mirroring what the store query would do.
type fakeDueSource struct {
	tasks []*domain.Task
	err   error

	gotStatus domain.Status
	gotFrom   time.Time
	gotTo     time.Time
}

func (f *fakeDueSource) ListDueWithin(_ context.Context, status domain.Status, from, to time.Time) ([]*domain.Task, error) {
	f.gotStatus = status
	f.gotFrom = from
	f.gotTo = to
	if f.err != nil {
		return nil, f.err
	}

	var due []*domain.Task
	for _, task := range f.tasks {
		if task.Status != status || task.DueDate == nil {
			continue
		}
		if !task.DueDate.Before(from) && task.DueDate.Before(to) {
			due = append(due, task)
		}
	}
	return due, nil
}

type recordingDispatcher struct {
	taskIDs []uuid.UUID
	err     error
}

func (r *recordingDispatcher) DispatchReminder(taskID uuid.UUID) error {
	r.taskIDs = append(r.taskIDs, taskID)
	return r.err
}

func taskDueIn(offset time.Duration, status domain.Status, base time.Time) *domain.Task {
	due := base.Add(offset)
	return &domain.Task{
		ID:         uuid.New(),
		Title:      "due task",
		Priority:   domain.PriorityMedium,
		Status:     status,
		DueDate:    &due,
		AssignedTo: uuid.New(),
		CreatedBy:  uuid.New(),
	}
}

func TestScanSelectsPendingTasksInsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	inOneHour := taskDueIn(time.Hour, domain.StatusPending, now)
	in23Hours := taskDueIn(23*time.Hour, domain.StatusPending, now)
	in25Hours := taskDueIn(25*time.Hour, domain.StatusPending, now)
	completedSoon := taskDueIn(2*time.Hour, domain.StatusCompleted, now)

	source := &fakeDueSource{tasks: []*domain.Task{inOneHour, in23Hours, in25Hours, completedSoon}}
	dispatcher := &recordingDispatcher{}

	scanner := NewScanner(source, dispatcher, ScannerConfig{Window: 24 * time.Hour}, testLogger())
	scanner.now = func() time.Time { return now }

	require.NoError(t, scanner.Scan(context.Background()))

	assert.Equal(t, domain.StatusPending, source.gotStatus)
	assert.Equal(t, now, source.gotFrom)
	assert.Equal(t, now.Add(24*time.Hour), source.gotTo)

	assert.ElementsMatch(t,
		[]uuid.UUID{inOneHour.ID, in23Hours.ID},
		dispatcher.taskIDs,
		"only pending tasks due within 24h are notified")
}

func TestScanRenotifiesOnEveryRun(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	task := taskDueIn(time.Hour, domain.StatusPending, now)

	source := &fakeDueSource{tasks: []*domain.Task{task}}
	dispatcher := &recordingDispatcher{}

	scanner := NewScanner(source, dispatcher, ScannerConfig{Window: 24 * time.Hour}, testLogger())
	scanner.now = func() time.Time { return now }

	require.NoError(t, scanner.Scan(context.Background()))
	require.NoError(t, scanner.Scan(context.Background()))

	assert.Len(t, dispatcher.taskIDs, 2,
		"a task still due on the next scan is notified again")
}

func TestScanPropagatesSourceError(t *testing.T) {
	t.Parallel()

	source := &fakeDueSource{err: errors.New("db down")}
	scanner := NewScanner(source, &recordingDispatcher{}, ScannerConfig{}, testLogger())

	err := scanner.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to select due tasks")
}

func TestScanContinuesPastEnqueueFailure(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	first := taskDueIn(time.Hour, domain.StatusPending, now)
	second := taskDueIn(2*time.Hour, domain.StatusPending, now)

	source := &fakeDueSource{tasks: []*domain.Task{first, second}}
	dispatcher := &recordingDispatcher{err: errors.New("queue full")}

	scanner := NewScanner(source, dispatcher, ScannerConfig{Window: 24 * time.Hour}, testLogger())
	scanner.now = func() time.Time { return now }

	require.NoError(t, scanner.Scan(context.Background()),
		"enqueue failures are contained within the scan")
	assert.Len(t, dispatcher.taskIDs, 2, "every due task is still offered to the dispatcher")
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	scanner := NewScanner(&fakeDueSource{}, &recordingDispatcher{}, ScannerConfig{Schedule: "not a cron"}, testLogger())

	err := scanner.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reminder schedule")
}
