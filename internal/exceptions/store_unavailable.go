package exceptions

import "net/http"

var ErrStoreUnavailable = &Exception{
	Message:    "storage is unavailable",
	StatusCode: http.StatusServiceUnavailable,
}
