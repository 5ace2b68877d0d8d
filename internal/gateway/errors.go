package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated means no usable credential was present; no request was sent.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired means the backend answered 401 or the credential expired; the session was cleared.
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// NetworkError is a failure before any response arrived, timeouts included.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports a backend 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
