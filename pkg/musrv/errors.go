package musrv

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int    // HTTP status code
	Message    string // Response body or a short description
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("musrv: status %d", e.StatusCode)
	}
	return fmt.Sprintf("musrv: status %d: %s", e.StatusCode, e.Message)
}

// Is matches another *Error with the same status code, so
// errors.Is(err, &Error{StatusCode: 404}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// Temporary reports whether the request is worth retrying.
func (e *Error) Temporary() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// ErrInvalidConfig is returned when client configuration is invalid.
var ErrInvalidConfig = errors.New("musrv: invalid configuration")

// ErrNotFound matches 404 responses via errors.Is.
var ErrNotFound = &Error{StatusCode: http.StatusNotFound}
