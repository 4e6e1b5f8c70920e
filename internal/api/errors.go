package api

import (
	"errors"
	"fmt"
)

// Error is a normalized non-2xx response. Message carries the server's
// literal message when the body had one, so callers can surface it verbatim.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsAuthError reports whether err is, or wraps, a 401/403 API error.
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403)
}

// IsNotFound reports whether err is, or wraps, a 404 API error.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
