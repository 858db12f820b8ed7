// Package apperr holds the error kinds shared by services and controllers.
//
// Services wrap one of the sentinels below with fmt.Errorf("...: %w", ErrX) and
// the HTTP layer classifies them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks an empty or malformed request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a referenced course, lesson or enrollment that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate or already-applied state change.
	ErrConflict = errors.New("conflict")
	// ErrUpstream marks a failure of a third-party API.
	ErrUpstream = errors.New("upstream error")
	// ErrConfiguration marks missing external credentials or settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnauthorized marks a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
)

// InvalidInput wraps ErrInvalidInput with a human readable reason.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the name of the missing entity.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
