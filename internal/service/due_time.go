package service

import (
	"fmt"
	"strings"
	"time"

	"task-reminder/internal/model"
)

// MalformedTimeError reports a date or time field that could not be parsed.
type MalformedTimeError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedTimeError) Unwrap() error {
	return e.Err
}

// DueInput carries the user-supplied scheduling fields of a task.
type DueInput struct {
	Date        *string
	Time        *string
	LeadMinutes int
	IsReminder  bool
	TaskType    model.TaskType
}

// DueTimeResolver turns local date/time/lead fields into a UTC due instant.
// All users share one fixed offset.
type DueTimeResolver struct {
	loc         *time.Location
	notifyTasks bool
}

// NewDueTimeResolver builds a resolver for loc. When notifyTasks is set, plain
// tasks with a date and time are scheduled as well as explicit reminders.
func NewDueTimeResolver(loc *time.Location, notifyTasks bool) *DueTimeResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &DueTimeResolver{loc: loc, notifyTasks: notifyTasks}
}

// Eligible reports whether a task of this kind may ever fire a notification.
func (r *DueTimeResolver) Eligible(isReminder bool, taskType model.TaskType) bool {
	if taskType == model.TaskTypeNote {
		return false
	}
	return isReminder || taskType == model.TaskTypeReminder || (r.notifyTasks && taskType == model.TaskTypeTask)
}

// Resolve returns nil when the task should not be scheduled, otherwise the UTC
// instant LeadMinutes before the local date and time.
func (r *DueTimeResolver) Resolve(in DueInput) (*time.Time, error) {
	if !r.Eligible(in.IsReminder, in.TaskType) || isBlank(in.Date) || isBlank(in.Time) {
		return nil, nil
	}

	day, err := ParseDate(*in.Date)
	if err != nil {
		return nil, err
	}
	clock, err := ParseClock(*in.Time)
	if err != nil {
		return nil, err
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, r.loc)
	due := local.Add(-time.Duration(in.LeadMinutes) * time.Minute).UTC()
	return &due, nil
}

// Today returns the local calendar date of now in the resolver's zone.
func (r *DueTimeResolver) Today(now time.Time) string {
	return now.In(r.loc).Format(model.DateLayout)
}

// WallClock splits an instant into the local date and HH:MM:SS wall-clock strings.
func (r *DueTimeResolver) WallClock(t time.Time) (string, string) {
	local := t.In(r.loc)
	return local.Format(model.DateLayout), local.Format("15:04:05")
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &MalformedTimeError{Field: "date", Value: value, Err: err}
	}
	return t, nil
}

// ParseClock parses a 24-hour HH:MM or HH:MM:SS wall-clock time.
func ParseClock(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	layout := model.TimeLayout
	if strings.Count(v, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, v)
	if err != nil {
		return time.Time{}, &MalformedTimeError{Field: "time", Value: value, Err: err}
	}
	return t, nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
