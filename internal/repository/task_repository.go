package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-reminder/internal/exceptions"
	"task-reminder/internal/model"
)

// TaskRepository is the durable store for tasks and their reminder state.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListActive returns the user's tasks that are neither deleted nor archived,
// ordered by date then time with undated items last.
func (r *TaskRepository) ListActive(ctx context.Context, userID int64) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ? AND archived = ?", userID, false, false).
		Order("date ASC NULLS LAST, time ASC NULLS LAST, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindByID loads a task owned by userID. Tasks of other users are reported as not found.
func (r *TaskRepository) FindByID(ctx context.Context, userID int64, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exceptions.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Get loads a task regardless of owner. It returns (nil, nil) when the row is gone.
func (r *TaskRepository) Get(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// UpdateFields writes a sparse column change to a task owned by userID and
// returns the fresh row. Delivery columns are never written here.
func (r *TaskRepository) UpdateFields(ctx context.Context, userID int64, taskID uint, fields map[string]interface{}) (*model.Task, error) {
	for _, col := range []string{"reminder_sent", "remind_at"} {
		delete(fields, col)
	}
	if len(fields) > 0 {
		err := r.db.WithContext(ctx).Model(&model.Task{}).
			Where("id = ? AND user_id = ?", taskID, userID).
			Updates(fields).Error
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
	}
	return r.FindByID(ctx, userID, taskID)
}

// SelectDue returns unsent, open tasks whose remind_at is not after now, earliest first.
func (r *TaskRepository) SelectDue(ctx context.Context, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("remind_at IS NOT NULL AND remind_at <= ?", now.UTC()).
		Where("reminder_sent = ? AND deleted = ? AND completed = ? AND archived = ?", false, false, false, false).
		Order("remind_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("select due tasks: %w", err)
	}
	return tasks, nil
}

// MarkSent flags the reminder as delivered and, for pure reminders, archives the task.
// A completed task keeps its status. Calling it again for the same id is a no-op.
func (r *TaskRepository) MarkSent(ctx context.Context, taskID uint, archive bool) error {
	updates := map[string]interface{}{"reminder_sent": true}
	if archive {
		updates["archived"] = true
		updates["status"] = gorm.Expr("CASE WHEN completed THEN status ELSE ? END", model.StatusArchived)
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND reminder_sent = ?", taskID, false).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// SelectOverdueNonReminders returns open plain tasks dated before today (YYYY-MM-DD, local).
func (r *TaskRepository) SelectOverdueNonReminders(ctx context.Context, today string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("date IS NOT NULL AND date < ?", today).
		Where("completed = ? AND deleted = ? AND archived = ?", false, false, false).
		Where("is_reminder = ? AND task_type <> ?", false, model.TaskTypeReminder).
		Order("date ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("select overdue tasks: %w", err)
	}
	return tasks, nil
}

// Archive moves the given tasks to the archived state and reports how many changed.
func (r *TaskRepository) Archive(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id IN ? AND archived = ?", ids, false).
		Updates(map[string]interface{}{
			"archived": true,
			"status":   model.StatusArchived,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("archive tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeOldSent hard-deletes reminder rows that were already delivered or archived
// and whose remind_at is older than before.
func (r *TaskRepository) PurgeOldSent(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(is_reminder = ? OR task_type = ?)", true, model.TaskTypeReminder).
		Where("remind_at IS NOT NULL AND remind_at < ?", before.UTC()).
		Where("(reminder_sent = ? OR archived = ?)", true, true).
		Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sent reminders: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ping reports whether the store is reachable.
func (r *TaskRepository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}
