package exceptions

import "net/http"

var ErrEmptyUpdate = &Exception{
	Message:    "no fields to update",
	StatusCode: http.StatusBadRequest,
}

var ErrInvalidStatus = &Exception{
	Message:    "unknown status",
	StatusCode: http.StatusBadRequest,
}
