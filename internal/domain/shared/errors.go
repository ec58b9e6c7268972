package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so callers can tell them apart
// without string matching.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindInvalidRange           ErrorKind = "invalid_range"
	KindConcurrencyConflict    ErrorKind = "concurrency_conflict"
	KindTimeout                ErrorKind = "timeout"
	KindNotFound               ErrorKind = "not_found"
)

// Error codes carried on the wire
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeInvalidRange           = "INVALID_RANGE"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeTimeout                = "TIMEOUT"
	CodeNotFound               = "NOT_FOUND"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches another DomainError of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of its message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != "" && e.Kind != "" {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// Retryable reports whether the failure is transient
func (e *DomainError) Retryable() bool {
	return e.Kind == KindConcurrencyConflict || e.Kind == KindTimeout
}

// NewDomainError creates a new domain error with a free-form code
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

func newKindError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: kind}
}

// NewValidationError reports malformed or referentially invalid input
func NewValidationError(format string, args ...any) *DomainError {
	return newKindError(KindValidation, CodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidStateTransitionError reports a status change the state machine forbids
func NewInvalidStateTransitionError(entity, from, to string) *DomainError {
	return newKindError(KindInvalidStateTransition, CodeInvalidStateTransition,
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to))
}

// NewInvalidRangeError reports a non-sensical aggregation window
func NewInvalidRangeError(format string, args ...any) *DomainError {
	return newKindError(KindInvalidRange, CodeInvalidRange, fmt.Sprintf(format, args...))
}

// NewConcurrencyConflictError reports a lost optimistic-lock race
func NewConcurrencyConflictError(resource string) *DomainError {
	return newKindError(KindConcurrencyConflict, CodeConcurrencyConflict,
		fmt.Sprintf("%s was modified by another process", resource))
}

// NewTimeoutError wraps a deadline failure of a long-running query
func NewTimeoutError(operation string, cause error) *DomainError {
	err := newKindError(KindTimeout, CodeTimeout,
		fmt.Sprintf("%s exceeded its execution budget", operation))
	err.cause = cause
	return err
}

// NewNotFoundError reports a missing resource looked up by id
func NewNotFoundError(resource string) *DomainError {
	return newKindError(KindNotFound, CodeNotFound, resource+" not found")
}

// Common domain errors
var (
	ErrNotFound               = newKindError(KindNotFound, CodeNotFound, "Resource not found")
	ErrValidation             = newKindError(KindValidation, CodeValidation, "Invalid input provided")
	ErrInvalidStateTransition = newKindError(KindInvalidStateTransition, CodeInvalidStateTransition, "Status change not allowed")
	ErrInvalidRange           = newKindError(KindInvalidRange, CodeInvalidRange, "Invalid date range")
	ErrConcurrencyConflict    = newKindError(KindConcurrencyConflict, CodeConcurrencyConflict, "Resource was modified by another process")
	ErrTimeout                = newKindError(KindTimeout, CodeTimeout, "Operation timed out")
)

// KindOf returns the kind of a domain error in the chain, or "" for other errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient failure safe to retry with backoff
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return false
}
