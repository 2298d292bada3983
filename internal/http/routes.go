package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"task-reminder/internal/exceptions"
	middleware "task-reminder/internal/http/middlewares"
	"task-reminder/internal/logger"
)

// NewServer builds an echo instance with the API routes and middleware chain.
func NewServer(h *Handler, rateLimitPerMinute int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Register(e, h, rateLimitPerMinute)
	return e
}

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, requestID string) {
			ctx := logger.ContextWithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(middleware.RequestLogger())

	e.GET("/health", h.Health)

	api := e.Group("/api", middleware.RateLimiter(rateLimitPerMinute, time.Minute))
	api.POST("/tasks", h.CreateTask)
	api.GET("/tasks", h.ListTasks)
	api.PATCH("/tasks/:id", h.UpdateTask)

	// Paths used by the original web app.
	api.POST("/new_task", h.CreateLegacyTask)
	api.POST("/update_task", h.UpdateLegacyTask)
}

// ErrorHandler renders every error as {"status":"error","message":...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := exceptions.StatusCode(err)
	message := "internal server error"

	var httpErr *echo.HTTPError
	var appErr *exceptions.Exception
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
	default:
		logger.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, map[string]string{"status": "error", "message": message})
	}
	if writeErr != nil {
		logger.Error("write error response", "error", writeErr)
	}
}
