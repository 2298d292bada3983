package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-reminder/internal/exceptions"
	"task-reminder/internal/logger"
	"task-reminder/internal/model"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	UserID      int64
	Text        string
	Emoji       string
	Category    string
	Priority    string
	TaskType    model.TaskType
	Date        *string
	Time        *string
	LeadMinutes int
	IsReminder  bool

	// StartsAt fills Date and Time from an absolute instant when both are blank.
	StartsAt *time.Time
	// RemindIn schedules a reminder this many minutes from now when no date,
	// time or StartsAt is given.
	RemindIn *int
}

// TaskUpdate is a sparse change to the lifecycle flags of a task.
type TaskUpdate struct {
	Completed *bool
	Deleted   *bool
	Archived  *bool
	Status    *model.Status
}

func (u TaskUpdate) empty() bool {
	return u.Completed == nil && u.Deleted == nil && u.Archived == nil && u.Status == nil
}

// TaskStore is the part of the repository used by the task entry points.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListActive(ctx context.Context, userID int64) ([]model.Task, error)
	FindByID(ctx context.Context, userID int64, taskID uint) (*model.Task, error)
	UpdateFields(ctx context.Context, userID int64, taskID uint, fields map[string]interface{}) (*model.Task, error)
	Ping(ctx context.Context) error
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store    TaskStore
	resolver *DueTimeResolver
	clock    Clock
}

func NewTaskService(store TaskStore, resolver *DueTimeResolver, clock Clock) *TaskService {
	if clock == nil {
		clock = SystemClock()
	}
	return &TaskService{store: store, resolver: resolver, clock: clock}
}

// CreateTask fills defaults, computes remind_at and persists the task.
// Unparseable date or time values are dropped and the task is stored unscheduled.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, exceptions.BadRequest("text is required")
	}
	if input.UserID == 0 {
		return nil, exceptions.BadRequest("user_id is required")
	}
	if input.LeadMinutes < 0 {
		return nil, exceptions.BadRequest("lead_minutes must not be negative")
	}

	taskType := input.TaskType
	if taskType == "" {
		taskType = model.TaskTypeTask
	}
	if !taskType.Valid() {
		return nil, exceptions.BadRequest("unknown task_type")
	}

	task := model.Task{
		UserID:      input.UserID,
		Text:        text,
		Emoji:       orDefault(input.Emoji, model.DefaultEmoji),
		Category:    orDefault(input.Category, model.DefaultCategory),
		Priority:    orDefault(input.Priority, model.DefaultPriority),
		TaskType:    taskType,
		LeadMinutes: input.LeadMinutes,
		IsReminder:  input.IsReminder || taskType == model.TaskTypeReminder,
		Status:      model.StatusActive,
	}
	input = s.fillRelativeSchedule(input, &task)
	task.Date, task.Time = s.normalizeSchedule(input)

	// The raw time keeps its seconds for the due instant; the column holds HH:MM.
	rawTime := input.Time
	if task.Time == nil {
		rawTime = nil
	}
	remindAt, err := s.resolver.Resolve(DueInput{
		Date:        task.Date,
		Time:        rawTime,
		LeadMinutes: task.LeadMinutes,
		IsReminder:  task.IsReminder,
		TaskType:    task.TaskType,
	})
	if err != nil {
		return nil, err
	}
	task.RemindAt = remindAt

	if err := s.store.Create(ctx, &task); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "task created", "task_id", task.ID, "user_id", task.UserID,
		"task_type", task.TaskType, "scheduled", task.RemindAt != nil)
	return &task, nil
}

// fillRelativeSchedule turns StartsAt or RemindIn into local date and time fields.
func (s *TaskService) fillRelativeSchedule(input TaskInput, task *model.Task) TaskInput {
	if !isBlank(input.Date) || !isBlank(input.Time) {
		return input
	}
	switch {
	case input.StartsAt != nil:
		date, clock := s.resolver.WallClock(*input.StartsAt)
		input.Date, input.Time = &date, &clock
	case input.RemindIn != nil && *input.RemindIn >= 0:
		at := s.clock.Now().Add(time.Duration(*input.RemindIn) * time.Minute)
		date, clock := s.resolver.WallClock(at)
		input.Date, input.Time = &date, &clock
		task.LeadMinutes = 0
		task.IsReminder = true
	}
	return input
}

// normalizeSchedule returns canonical date and time strings, dropping blank or malformed values.
func (s *TaskService) normalizeSchedule(input TaskInput) (*string, *string) {
	var date, clock *string

	if !isBlank(input.Date) {
		if d, err := ParseDate(*input.Date); err != nil {
			logMalformed(input.UserID, err)
		} else {
			v := d.Format(model.DateLayout)
			date = &v
		}
	}
	if !isBlank(input.Time) {
		if c, err := ParseClock(*input.Time); err != nil {
			logMalformed(input.UserID, err)
		} else {
			v := c.Format(model.TimeLayout)
			clock = &v
		}
	}
	return date, clock
}

func logMalformed(userID int64, err error) {
	var malformed *MalformedTimeError
	if errors.As(err, &malformed) {
		logger.Warn("dropping malformed schedule field", "user_id", userID,
			"field", malformed.Field, "value", malformed.Value)
		return
	}
	logger.Warn("dropping malformed schedule field", "user_id", userID, "error", err)
}

func (s *TaskService) ListActive(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.store.ListActive(ctx, userID)
}

// UpdateTask applies a sparse lifecycle change to a task owned by userID.
func (s *TaskService) UpdateTask(ctx context.Context, userID int64, taskID uint, upd TaskUpdate) (*model.Task, error) {
	if upd.empty() {
		return nil, exceptions.ErrEmptyUpdate
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, exceptions.ErrInvalidStatus
	}

	current, err := s.store.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	fields := lifecycleChanges(current, upd, s.clock.Now().UTC())
	task, err := s.store.UpdateFields(ctx, userID, taskID, fields)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "task updated", "task_id", task.ID, "user_id", userID, "status", task.Status)
	return task, nil
}

// Ping reports whether the task store is reachable.
func (s *TaskService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// lifecycleChanges turns a sparse update into the columns it touches. current
// only supplies the status the change starts from.
func lifecycleChanges(current *model.Task, upd TaskUpdate, now time.Time) map[string]interface{} {
	fields := make(map[string]interface{})
	status := current.Status
	setStatus := func(st model.Status) {
		status = st
		fields["status"] = st
	}

	if upd.Status != nil {
		switch *upd.Status {
		case model.StatusCompleted:
			fields["completed"] = true
			fields["completed_at"] = now
			setStatus(model.StatusCompleted)
		case model.StatusArchived:
			fields["archived"] = true
			setStatus(model.StatusArchived)
		default:
			fields["completed"] = false
			fields["completed_at"] = nil
			fields["archived"] = false
			setStatus(*upd.Status)
		}
	}
	if upd.Completed != nil {
		fields["completed"] = *upd.Completed
		if *upd.Completed {
			fields["completed_at"] = now
			setStatus(model.StatusCompleted)
		} else {
			fields["completed_at"] = nil
			if status == model.StatusCompleted {
				setStatus(model.StatusActive)
			}
		}
	}
	if upd.Archived != nil {
		fields["archived"] = *upd.Archived
		if *upd.Archived {
			setStatus(model.StatusArchived)
		} else if status == model.StatusArchived {
			setStatus(model.StatusActive)
		}
	}
	if upd.Deleted != nil {
		fields["deleted"] = *upd.Deleted
		if *upd.Deleted {
			fields["deleted_at"] = now
		} else {
			fields["deleted_at"] = nil
		}
	}
	return fields
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
