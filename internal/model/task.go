package model

import "time"

// TaskType tells what kind of item the user created.
type TaskType string

const (
	TaskTypeTask     TaskType = "task"
	TaskTypeNote     TaskType = "note"
	TaskTypeReminder TaskType = "reminder"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTask, TaskTypeNote, TaskTypeReminder:
		return true
	}
	return false
}

// Status mirrors the lifecycle flags for clients that only look at one field.
type Status string

const (
	StatusActive     Status = "active"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

const (
	DefaultEmoji    = "📝"
	DefaultCategory = "personal"
	DefaultPriority = "medium"

	// DateLayout and TimeLayout describe the local wall-clock columns.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Task represents a single item in the planner.
// Date and Time hold the user's local wall clock; RemindAt is always UTC.
type Task struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       int64      `gorm:"index;not null" json:"user_id"`
	Text         string     `gorm:"not null" json:"text"`
	Emoji        string     `json:"emoji"`
	Category     string     `gorm:"type:varchar(32)" json:"category"`
	Priority     string     `gorm:"type:varchar(16)" json:"priority"`
	TaskType     TaskType   `gorm:"type:varchar(16);index" json:"task_type"`
	Date         *string    `gorm:"type:varchar(10);index" json:"date"`
	Time         *string    `gorm:"type:varchar(5)" json:"time"`
	LeadMinutes  int        `json:"lead_minutes"`
	IsReminder   bool       `gorm:"index" json:"is_reminder"`
	RemindAt     *time.Time `gorm:"index" json:"remind_at"`
	ReminderSent bool       `gorm:"index" json:"reminder_sent"`
	Completed    bool       `gorm:"index" json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Deleted      bool       `gorm:"index" json:"deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	Archived     bool       `gorm:"index" json:"archived"`
	Status       Status     `gorm:"type:varchar(16)" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsPureReminder reports whether delivery closes the task for good.
func (t *Task) IsPureReminder() bool {
	return t.IsReminder || t.TaskType == TaskTypeReminder
}

// Closed reports whether the task left the active set.
func (t *Task) Closed() bool {
	return t.Deleted || t.Completed || t.Archived
}
