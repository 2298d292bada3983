package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"task-reminder/internal/logger"
	"task-reminder/internal/model"
)

const markSentTimeout = 10 * time.Second

// Notification is a message addressed to the owner of a task.
type Notification struct {
	UserID int64
	TaskID uint
	Text   string
	// Actionable notifications carry accept / in-progress / done buttons.
	Actionable bool
}

// Notifier pushes a notification to a user. A non-nil error means it was not delivered.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// ReminderStore is the part of the task store the delivery pipeline needs.
type ReminderStore interface {
	SelectDue(ctx context.Context, now time.Time) ([]model.Task, error)
	MarkSent(ctx context.Context, taskID uint, archive bool) error
	Get(ctx context.Context, taskID uint) (*model.Task, error)
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	Fetched   int
	Delivered int
	Failed    int
	Skipped   int
}

// ReminderService polls the store for due tasks and delivers them.
type ReminderService struct {
	store     ReminderStore
	notifier  Notifier
	tracker   *DeliveryTracker
	clock     Clock
	loc       *time.Location
	sendDelay time.Duration

	cycleMu sync.Mutex

	retryMu sync.Mutex
	retryWG sync.WaitGroup
	stopped bool
}

// ReminderOptions tunes the delivery pipeline.
type ReminderOptions struct {
	Location  *time.Location
	SendDelay time.Duration
	Retry     RetryPolicy
	Clock     Clock
}

func NewReminderService(store ReminderStore, notifier Notifier, opts ReminderOptions) *ReminderService {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ReminderService{
		store:     store,
		notifier:  notifier,
		tracker:   NewDeliveryTracker(opts.Retry, opts.Clock),
		clock:     opts.Clock,
		loc:       opts.Location,
		sendDelay: opts.SendDelay,
	}
}

// Tracker exposes the retry bookkeeping.
func (s *ReminderService) Tracker() *DeliveryTracker {
	return s.tracker
}

// RunStartupPass delivers whatever became due while the process was down.
func (s *ReminderService) RunStartupPass(ctx context.Context) (CycleResult, error) {
	logger.Info("running startup reminder pass")
	return s.RunCycle(ctx)
}

// RunCycle fetches due tasks and delivers them in remind_at order. A cycle that
// starts while another one is still running returns immediately.
func (s *ReminderService) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	if !s.cycleMu.TryLock() {
		logger.Warn("reminder cycle still running, skipping")
		return res, nil
	}
	defer s.cycleMu.Unlock()

	now := s.clock.Now()
	tasks, err := s.store.SelectDue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("fetch due reminders: %w", err)
	}
	res.Fetched = len(tasks)
	if len(tasks) > 0 {
		logger.Info("due reminders fetched", "count", len(tasks))
	}

	first := true
	for i := range tasks {
		task := tasks[i]
		if s.tracker.Blocked(task.ID) {
			res.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !first {
			if err := sleepCtx(ctx, s.sendDelay); err != nil {
				return res, err
			}
		}
		first = false

		if err := s.deliver(ctx, &task); err != nil {
			res.Failed++
			s.scheduleRetry(&task, err)
			continue
		}
		res.Delivered++
	}

	return res, nil
}

// deliver sends one notification and marks it sent.
func (s *ReminderService) deliver(ctx context.Context, task *model.Task) error {
	n := Notification{
		UserID:     task.UserID,
		TaskID:     task.ID,
		Text:       FormatNotification(*task, s.loc),
		Actionable: !task.IsPureReminder(),
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		return err
	}

	// The message is out; recording it must survive cancellation of the cycle.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markSentTimeout)
	defer cancel()
	if err := s.store.MarkSent(markCtx, task.ID, task.IsPureReminder()); err != nil {
		// The message went out; the next poll may repeat it, which at-least-once allows.
		logger.Error("mark reminder sent", "task_id", task.ID, "error", err)
		return nil
	}
	logger.Info("reminder delivered", "task_id", task.ID, "user_id", task.UserID, "archived", task.IsPureReminder())
	return nil
}

func (s *ReminderService) scheduleRetry(task *model.Task, cause error) {
	taskID := task.ID
	at, ok := s.tracker.ScheduleRetry(taskID, func() { s.retry(taskID) })
	if !ok {
		logger.Warn("reminder delivery failed, no retry scheduled",
			"task_id", taskID, "user_id", task.UserID, "attempts", s.tracker.Attempts(taskID),
			"exhausted", s.tracker.Exhausted(taskID), "error", cause)
		return
	}
	logger.Warn("reminder delivery failed, retry scheduled",
		"task_id", taskID, "user_id", task.UserID, "retry_at", at.UTC().Format(time.RFC3339),
		"attempt", s.tracker.Attempts(taskID), "error", cause)
}

// retry is the one-shot job armed by the tracker for a single task.
func (s *ReminderService) retry(taskID uint) {
	s.retryMu.Lock()
	if s.stopped {
		s.retryMu.Unlock()
		return
	}
	s.retryWG.Add(1)
	s.retryMu.Unlock()
	defer s.retryWG.Done()

	s.tracker.Fired(taskID)

	ctx := context.Background()
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		s.scheduleRetry(&model.Task{ID: taskID}, err)
		return
	}
	if task == nil || task.ReminderSent || task.Closed() {
		s.tracker.Forget(taskID)
		return
	}

	if err := s.deliver(ctx, task); err != nil {
		s.scheduleRetry(task, err)
		return
	}
	s.tracker.Forget(taskID)
}

// Stop disarms pending retries and waits for running ones to finish.
func (s *ReminderService) Stop() {
	s.retryMu.Lock()
	s.stopped = true
	s.retryMu.Unlock()

	s.tracker.Stop()
	s.retryWG.Wait()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FormatNotification renders the Telegram HTML text for a due task.
func FormatNotification(task model.Task, loc *time.Location) string {
	var sb strings.Builder

	emoji := strings.TrimSpace(task.Emoji)
	if emoji == "" {
		emoji = "📌"
	}

	if task.IsPureReminder() {
		sb.WriteString(fmt.Sprintf("🔔 %s <b>Напоминание!</b>\n\n", emoji))
	} else {
		sb.WriteString(fmt.Sprintf("📋 %s <b>Пора заняться задачей!</b>\n\n", emoji))
	}

	sb.WriteString(html.EscapeString(strings.TrimSpace(task.Text)))
	if when := localTime(task, loc); when != "" {
		sb.WriteString(" в ")
		sb.WriteString(when)
	}

	if !task.IsPureReminder() {
		sb.WriteString(fmt.Sprintf("\n\n🏷 %s · %s", html.EscapeString(categoryName(task.Category)), priorityLabel(task.Priority)))
	}
	return sb.String()
}

// localTime prefers the wall-clock the user typed and falls back to remind_at.
func localTime(task model.Task, loc *time.Location) string {
	if task.Time != nil && *task.Time != "" {
		if t, err := ParseClock(*task.Time); err == nil {
			return t.Format(model.TimeLayout)
		}
	}
	if task.RemindAt != nil && task.LeadMinutes == 0 {
		return task.RemindAt.In(loc).Format(model.TimeLayout)
	}
	return ""
}

func categoryName(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "", "personal":
		return "личное"
	case "work":
		return "работа"
	case "health":
		return "здоровье"
	case "study":
		return "учёба"
	case "shopping":
		return "покупки"
	default:
		return category
	}
}

func priorityLabel(priority string) string {
	switch priority {
	case "high":
		return "🔴 высокий"
	case "low":
		return "🟢 низкий"
	default:
		return "🟡 средний"
	}
}
