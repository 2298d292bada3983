package dto

import (
	"strings"
	"time"
)

// CreateTaskRequest is the body of POST /api/tasks and the legacy POST /api/new_task.
// Older web app builds send task_text and reminder / remind_in_minutes.
type CreateTaskRequest struct {
	UserID          int64   `json:"user_id" validate:"required"`
	Text            string  `json:"text" validate:"required_without=TaskText,max=2000"`
	TaskText        string  `json:"task_text" validate:"max=2000"`
	Emoji           string  `json:"emoji" validate:"max=16"`
	Category        string  `json:"category" validate:"max=32"`
	Priority        string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	TaskType        string  `json:"task_type" validate:"omitempty,oneof=task note reminder"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	LeadMinutes     *int    `json:"lead_minutes" validate:"omitempty,min=0"`
	Reminder        *int    `json:"reminder" validate:"omitempty,min=0"`
	RemindInMinutes *int    `json:"remind_in_minutes" validate:"omitempty,min=0"`
	IsReminder      bool    `json:"is_reminder"`
	StartTime       *string `json:"start_time"`
}

// Body returns the task text from whichever field the client used.
func (r *CreateTaskRequest) Body() string {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	return r.TaskText
}

// Lead returns the reminder lead time from whichever alias was sent.
func (r *CreateTaskRequest) Lead() int {
	for _, v := range []*int{r.LeadMinutes, r.Reminder, r.RemindInMinutes} {
		if v != nil {
			return *v
		}
	}
	return 0
}

// StartsAt parses the ISO 8601 start_time of the legacy web app. A missing or
// unparseable value yields nil.
func (r *CreateTaskRequest) StartsAt() *time.Time {
	if r.StartTime == nil || strings.TrimSpace(*r.StartTime) == "" {
		return nil
	}
	v := strings.TrimSpace(*r.StartTime)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// UpdateTaskRequest is a sparse lifecycle change. TaskID is only read by the
// legacy POST /api/update_task; PATCH takes the id from the path.
type UpdateTaskRequest struct {
	UserID    int64   `json:"user_id" validate:"required"`
	TaskID    uint    `json:"task_id"`
	Completed *bool   `json:"completed"`
	Deleted   *bool   `json:"deleted"`
	Archived  *bool   `json:"archived"`
	Status    *string `json:"status" validate:"omitempty,oneof=active in_progress completed archived"`
}
