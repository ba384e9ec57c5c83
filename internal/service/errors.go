package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutline is returned when an operation needs the course outline
	// and none has been generated or saved yet.
	ErrNoOutline = errors.New("course has no outline")

	// ErrInvalidOutline is returned when a submitted outline is unusable.
	ErrInvalidOutline = errors.New("invalid outline")
)

// ServiceError wraps a failed use case with the operation that failed.
// errors.Is and errors.As see through it to the cause.
type ServiceError struct {
	// Operation is the use case that failed (e.g. "generate_outline")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err, or returns nil when err is nil.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
