package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for every non-2xx response.
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// StatusOf returns the HTTP status carried by err, or 0 for transport level
// failures.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsCanceled reports whether err stems from an explicit cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTransient reports whether a retry could change the outcome: network
// failures and timeouts without a status, or any 5xx response.
func IsTransient(err error) bool {
	if err == nil || IsCanceled(err) {
		return false
	}
	status := StatusOf(err)
	return status == 0 || status >= http.StatusInternalServerError
}

func IsUnauthorized(err error) bool {
	status := StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
