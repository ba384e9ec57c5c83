package generation

import (
	"context"
	"errors"

	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when generation fails for any general reason,
	// including non-2xx responses that are not authentication failures
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during content generation")

	// ErrAuthentication is returned when the provider rejects the API key
	ErrAuthentication = errors.New("provider rejected the API key")

	// ErrCapacity is returned when no acceptable model is available to the account
	ErrCapacity = errors.New("no acceptable model available")

	// ErrChapterNotFound is returned when the requested chapter is not in the outline
	ErrChapterNotFound = errors.New("chapter not found in outline")

	// ErrInvalidConfig is returned when the client configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrExpansionTooShort is returned when an expansion is not longer than its source
	// and shorter results are not accepted
	ErrExpansionTooShort = errors.New("expanded content is not longer than the original")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")
)

// Kind classifies failures for reporting.
type Kind string

// Failure kinds.
const (
	KindNone           Kind = ""
	KindTransient      Kind = "transient"
	KindAuthentication Kind = "authentication"
	KindMalformed      Kind = "malformed_response"
	KindCapacity       Kind = "capacity"
	KindNotFound       Kind = "not_found"
	KindPersistence    Kind = "persistence"
	KindUnavailable    Kind = "unavailable"
	KindCanceled       Kind = "canceled"
	KindUnknown        Kind = "unknown"
)

// KindOf maps any error to its failure kind. A nil error has KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrCapacity):
		return KindCapacity
	case errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrExpansionTooShort),
		errors.Is(err, ErrContentBlocked):
		return KindMalformed
	case errors.Is(err, ErrChapterNotFound), errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrPersistence),
		errors.Is(err, store.ErrTransactionFailed),
		errors.Is(err, store.ErrInvalidEntity):
		return KindPersistence
	case errors.Is(err, ErrTransientFailure), retry.IsRetryable(err):
		return KindTransient
	case errors.Is(err, ErrGenerationFailed):
		return KindUnavailable
	default:
		return KindUnknown
	}
}
