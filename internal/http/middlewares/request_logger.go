package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"task-reminder/internal/logger"
)

// RequestLogger writes one structured record per request. The level follows the status code.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status

			logFunc := logger.InfoContext
			if status >= 500 {
				logFunc = logger.ErrorContext
			} else if status >= 400 {
				logFunc = logger.WarnContext
			}

			logFunc(req.Context(), "request completed",
				"method", req.Method,
				"path", c.Path(),
				"status", status,
				"ip", c.RealIP(),
				"latency", time.Since(start).String(),
				"bytes", c.Response().Size,
			)
			return nil
		}
	}
}
