package exceptions

import (
	"errors"
	"net/http"
)

// Exception is an error that knows which HTTP status it maps to.
type Exception struct {
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

// StatusCode returns the status attached to err, 500 for anything else.
func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// BadRequest builds a 400 exception with a custom message.
func BadRequest(message string) *Exception {
	return &Exception{Message: message, StatusCode: http.StatusBadRequest}
}
