package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"task-reminder/internal/exceptions"
	"task-reminder/internal/http/dto"
	"task-reminder/internal/http/validators"
	"task-reminder/internal/logger"
	"task-reminder/internal/model"
	"task-reminder/internal/service"
)

// TaskAPI is the task entry point used by the handlers.
type TaskAPI interface {
	CreateTask(ctx context.Context, input service.TaskInput) (*model.Task, error)
	ListActive(ctx context.Context, userID int64) ([]model.Task, error)
	UpdateTask(ctx context.Context, userID int64, taskID uint, upd service.TaskUpdate) (*model.Task, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	tasks TaskAPI
}

func NewHandler(tasks TaskAPI) *Handler {
	return &Handler{tasks: tasks}
}

func (h *Handler) CreateTask(c echo.Context) error {
	return h.createTask(c, false)
}

// CreateLegacyTask serves the web app's original POST /api/new_task. Everything
// created there is a reminder, and remind_in_minutes without a date means "from now".
func (h *Handler) CreateLegacyTask(c echo.Context) error {
	return h.createTask(c, true)
}

func (h *Handler) createTask(c echo.Context, legacy bool) error {
	var req dto.CreateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateCreateTaskRequest(&req); err != nil {
		return err
	}

	input := service.TaskInput{
		UserID:      req.UserID,
		Text:        req.Body(),
		Emoji:       req.Emoji,
		Category:    req.Category,
		Priority:    req.Priority,
		TaskType:    model.TaskType(req.TaskType),
		Date:        req.Date,
		Time:        req.Time,
		LeadMinutes: req.Lead(),
		IsReminder:  req.IsReminder,
		StartsAt:    req.StartsAt(),
	}
	if legacy {
		input.IsReminder = true
		if input.StartsAt == nil && req.RemindInMinutes != nil {
			input.RemindIn = req.RemindInMinutes
			input.LeadMinutes = 0
		}
	}

	task, err := h.tasks.CreateTask(c.Request().Context(), input)
	if err != nil {
		return err
	}

	resp := echo.Map{
		"status":    "ok",
		"id":        task.ID,
		"remind_at": task.RemindAt,
		"task":      task,
	}
	if legacy {
		resp["message"] = "Задача добавлена"
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListTasks(c echo.Context) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(c.QueryParam("user_id")), 10, 64)
	if err != nil || userID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	tasks, err := h.tasks.ListActive(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"count":  len(tasks),
		"tasks":  tasks,
	})
}

func (h *Handler) UpdateTask(c echo.Context) error {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || taskID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "task id is required")
	}

	var req dto.UpdateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	return h.updateTask(c, uint(taskID), &req)
}

// UpdateLegacyTask serves POST /api/update_task, which carries task_id in the body.
func (h *Handler) UpdateLegacyTask(c echo.Context) error {
	var req dto.UpdateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if req.TaskID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id is required")
	}
	return h.updateTask(c, req.TaskID, &req)
}

func (h *Handler) updateTask(c echo.Context, taskID uint, req *dto.UpdateTaskRequest) error {
	if err := validators.ValidateUpdateTaskRequest(req); err != nil {
		return err
	}

	upd := service.TaskUpdate{
		Completed: req.Completed,
		Deleted:   req.Deleted,
		Archived:  req.Archived,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		upd.Status = &status
	}

	task, err := h.tasks.UpdateTask(c.Request().Context(), req.UserID, taskID, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "task": task})
}

// Health reports 200 while the store answers pings.
func (h *Handler) Health(c echo.Context) error {
	if err := h.tasks.Ping(c.Request().Context()); err != nil {
		logger.ErrorContext(c.Request().Context(), "health check failed", "error", err)
		return exceptions.ErrStoreUnavailable
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func bindBody(c echo.Context, dst interface{}) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindBody(c, dst); err != nil {
		return exceptions.ErrInvalidJSON
	}
	return nil
}
