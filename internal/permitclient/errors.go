package permitclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the backend answers 401.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the backend answers 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNon2xxStatus marks every other non-success status.
	ErrNon2xxStatus   = errors.New("non-2xx HTTP status")
	ErrResponseTooBig = errors.New("response exceeds 1MB limit")
	ErrInvalidJSON    = errors.New("invalid JSON response")
)

// APIError carries the status code and the server's error text for a
// failed call.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Unwrap maps the status code onto the sentinel errors so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthenticated
	case 403:
		return ErrForbidden
	default:
		return ErrNon2xxStatus
	}
}

// ServerMessage returns the backend's error text, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
