package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyOutline is returned when an outline has no chapters.
	ErrEmptyOutline = errors.New("outline has no chapters")

	// ErrDuplicateChapterID is returned when two chapters share an ID.
	ErrDuplicateChapterID = errors.New("duplicate chapter ID")

	// ErrMissingCourseField is returned when a required course parameter is blank.
	ErrMissingCourseField = errors.New("missing required course parameter")
)
