package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below matches exactly one of them with
// errors.Is, so callers can branch without type assertions.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPermission  = errors.New("permission denied")
	ErrPersistence = errors.New("persistence error")
)

type (
	// ValidationError reports malformed input to a mutation: unknown question
	// type, index out of range, attempt to change an immutable field, unknown
	// setting key or a value of the wrong kind.
	ValidationError struct {
		Field  string
		Reason string
	}

	// NotFoundError reports that a survey, template or question id does not
	// resolve.
	NotFoundError struct {
		Kind string // "survey", "template", "question", "question type"
		ID   string
	}

	// PermissionError reports a template access policy violation.
	PermissionError struct {
		Action string
		Reason string
	}

	// PersistenceError wraps storage and transport failures. It is the only
	// retryable error class.
	PersistenceError struct {
		Op  string
		Err error
	}
)

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %s", e.Action, e.Reason)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermission }

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether err belongs to the persistence class, the only
// one a caller may offer to retry without re-validating the document.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}
