package utils

import (
	"errors"
	"slices"
	"strings"
)

var (
	ErrDuplicateUser      = errors.New("username and/or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrNotAuthorized      = errors.New("task belongs to another user")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCSRF        = errors.New("invalid csrf token")
)

// ValidationError reports rejected form input. Msg is shown above the form,
// Fields holds per-field messages keyed by form field name.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Msg
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return "validation failed: " + e.Msg + " (" + strings.Join(names, ", ") + ")"
}

func newValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg, Fields: map[string]string{}}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields[field] = msg
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
