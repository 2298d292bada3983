package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"task-reminder/internal/exceptions"
	"task-reminder/internal/model"
	"task-reminder/internal/repository"
)

func newTestTaskService(t *testing.T) (*TaskService, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC))
	return NewTaskService(setupTaskRepo(t), NewDueTimeResolver(time.UTC, true), clock), clock
}

func TestCreateTaskSchedulesReminder(t *testing.T) {
	svc, _ := newTestTaskService(t)

	task, err := svc.CreateTask(context.Background(), TaskInput{
		UserID:     42,
		Text:       "  Pay rent ",
		IsReminder: true,
		Date:       strPtr("2025-03-01"),
		Time:       strPtr("09:00"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if task.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	if task.Text != "Pay rent" || task.Emoji != model.DefaultEmoji || task.Category != model.DefaultCategory || task.Priority != model.DefaultPriority {
		t.Errorf("defaults not applied: %+v", task)
	}
	want := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if task.RemindAt == nil || !task.RemindAt.Equal(want) {
		t.Errorf("expected remind_at %s, got %v", want, task.RemindAt)
	}
	if task.ReminderSent || task.Status != model.StatusActive {
		t.Errorf("new task should be active and unsent: %+v", task)
	}
}

func TestCreateTaskKeepsSecondsOnlyInRemindAt(t *testing.T) {
	svc, _ := newTestTaskService(t)

	task, err := svc.CreateTask(context.Background(), TaskInput{
		UserID: 1, Text: "stretch", TaskType: model.TaskTypeReminder,
		Date: strPtr("2025-03-01"), Time: strPtr("09:00:30"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Time == nil || *task.Time != "09:00" {
		t.Errorf("expected stored time 09:00, got %v", task.Time)
	}
	if task.RemindAt == nil || task.RemindAt.Second() != 30 {
		t.Errorf("expected remind_at with seconds, got %v", task.RemindAt)
	}
	if !task.IsReminder {
		t.Error("reminder task type implies is_reminder")
	}
}

func TestCreateTaskDropsMalformedSchedule(t *testing.T) {
	svc, _ := newTestTaskService(t)

	task, err := svc.CreateTask(context.Background(), TaskInput{
		UserID: 1, Text: "bad date", IsReminder: true,
		Date: strPtr("2025-02-30"), Time: strPtr("09:00"),
	})
	if err != nil {
		t.Fatalf("malformed date must not fail creation: %v", err)
	}
	if task.Date != nil || task.RemindAt != nil {
		t.Errorf("expected unscheduled task without date, got date=%v remind_at=%v", task.Date, task.RemindAt)
	}
	if task.Time == nil || *task.Time != "09:00" {
		t.Errorf("valid time should be kept, got %v", task.Time)
	}
}

func TestCreateTaskNoteIsNeverScheduled(t *testing.T) {
	svc, _ := newTestTaskService(t)

	task, err := svc.CreateTask(context.Background(), TaskInput{
		UserID: 1, Text: "idea", TaskType: model.TaskTypeNote,
		Date: strPtr("2025-03-01"), Time: strPtr("09:00"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.RemindAt != nil {
		t.Errorf("note must not be scheduled, got %s", task.RemindAt)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _ := newTestTaskService(t)

	cases := []TaskInput{
		{UserID: 1, Text: "   "},
		{Text: "no owner"},
		{UserID: 1, Text: "negative", LeadMinutes: -5},
		{UserID: 1, Text: "odd type", TaskType: "event"},
	}
	for _, in := range cases {
		_, err := svc.CreateTask(context.Background(), in)
		if exceptions.StatusCode(err) != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %v", in, err)
		}
	}

	tasks, err := svc.ListActive(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("rejected input must not be persisted, found %d tasks", len(tasks))
	}
}

func TestUpdateTaskChecksOwnership(t *testing.T) {
	svc, _ := newTestTaskService(t)
	task, err := svc.CreateTask(context.Background(), TaskInput{UserID: 1, Text: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := true
	_, err = svc.UpdateTask(context.Background(), 2, task.ID, TaskUpdate{Completed: &done})
	if !errors.Is(err, exceptions.ErrTaskNotFound) {
		t.Fatalf("expected not found for foreign task, got %v", err)
	}
}

func TestUpdateTaskRejectsBadInput(t *testing.T) {
	svc, _ := newTestTaskService(t)
	task, err := svc.CreateTask(context.Background(), TaskInput{UserID: 1, Text: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateTask(context.Background(), 1, task.ID, TaskUpdate{}); !errors.Is(err, exceptions.ErrEmptyUpdate) {
		t.Errorf("expected empty update error, got %v", err)
	}
	bogus := model.Status("paused")
	if _, err := svc.UpdateTask(context.Background(), 1, task.ID, TaskUpdate{Status: &bogus}); !errors.Is(err, exceptions.ErrInvalidStatus) {
		t.Errorf("expected invalid status error, got %v", err)
	}
}

func TestUpdateTaskLifecycle(t *testing.T) {
	svc, clock := newTestTaskService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{UserID: 1, Text: "write report"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	progress := model.StatusInProgress
	got, err := svc.UpdateTask(ctx, 1, task.ID, TaskUpdate{Status: &progress})
	if err != nil || got.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %+v err=%v", got, err)
	}

	done := true
	got, err = svc.UpdateTask(ctx, 1, task.ID, TaskUpdate{Completed: &done})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !got.Completed || got.Status != model.StatusCompleted || got.CompletedAt == nil || !got.CompletedAt.Equal(clock.Now()) {
		t.Errorf("unexpected completed task %+v", got)
	}

	deleted := true
	if _, err := svc.UpdateTask(ctx, 1, task.ID, TaskUpdate{Deleted: &deleted}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, err := svc.ListActive(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("deleted task should not be listed, got %d", len(tasks))
	}
}

func TestCreateTaskRelativeSchedule(t *testing.T) {
	svc, clock := newTestTaskService(t)
	ctx := context.Background()

	in := 30
	task, err := svc.CreateTask(ctx, TaskInput{UserID: 1, Text: "take the cake out", RemindIn: &in})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := clock.Now().Add(30 * time.Minute)
	if task.RemindAt == nil || !task.RemindAt.Equal(want) {
		t.Errorf("expected remind_at %s, got %v", want, task.RemindAt)
	}
	if !task.IsReminder || task.Date == nil || *task.Date != "2025-02-28" || *task.Time != "12:30" {
		t.Errorf("unexpected relative reminder %+v", task)
	}

	start := time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)
	task, err = svc.CreateTask(ctx, TaskInput{UserID: 1, Text: "concert", IsReminder: true, StartsAt: &start, LeadMinutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.RemindAt == nil || !task.RemindAt.Equal(start.Add(-time.Hour)) {
		t.Errorf("expected remind_at one hour before start, got %v", task.RemindAt)
	}
}

// sentDuringRead delivers the reminder right after the update has read the row.
type sentDuringRead struct {
	*repository.TaskRepository
	archive bool
	done    bool
}

func (s *sentDuringRead) FindByID(ctx context.Context, userID int64, taskID uint) (*model.Task, error) {
	task, err := s.TaskRepository.FindByID(ctx, userID, taskID)
	if err == nil && !s.done {
		s.done = true
		if err := s.TaskRepository.MarkSent(ctx, taskID, s.archive); err != nil {
			return nil, err
		}
	}
	return task, err
}

func TestUpdateTaskKeepsConcurrentDelivery(t *testing.T) {
	repo := setupTaskRepo(t)
	store := &sentDuringRead{TaskRepository: repo}
	clock := newFakeClock(nineAM)
	svc := NewTaskService(store, NewDueTimeResolver(time.UTC, true), clock)
	ctx := context.Background()

	task := seedTask(t, repo, model.Task{UserID: 5, Text: "write report", RemindAt: at(nineAM)})

	status := model.StatusInProgress
	updated, err := svc.UpdateTask(ctx, 5, task.ID, TaskUpdate{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.ReminderSent || updated.Status != model.StatusInProgress {
		t.Errorf("expected sent in-progress task, got sent=%t status=%s", updated.ReminderSent, updated.Status)
	}

	due, err := repo.SelectDue(ctx, nineAM.Add(time.Minute))
	if err != nil {
		t.Fatalf("select due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("delivered reminder must not be due again, got %d", len(due))
	}
}

func TestUpdateTaskCompletesConcurrentlyArchivedReminder(t *testing.T) {
	repo := setupTaskRepo(t)
	store := &sentDuringRead{TaskRepository: repo, archive: true}
	svc := NewTaskService(store, NewDueTimeResolver(time.UTC, true), newFakeClock(nineAM))
	ctx := context.Background()

	task := seedTask(t, repo, model.Task{UserID: 5, Text: "call mom", IsReminder: true, RemindAt: at(nineAM)})

	done := true
	updated, err := svc.UpdateTask(ctx, 5, task.ID, TaskUpdate{Completed: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.ReminderSent || !updated.Archived || !updated.Completed {
		t.Errorf("expected sent, archived and completed, got %+v", updated)
	}
}
