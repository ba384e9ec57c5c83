package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"google.golang.org/genai"
)

// asAPIError extracts a genai.APIError, which the SDK returns by value.
func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// isAuthError reports whether apiErr rejects the credentials. Gemini answers
// an unknown key with 400 INVALID_ARGUMENT rather than 401.
func isAuthError(apiErr genai.APIError) bool {
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(apiErr.Message), "api key")
	}
	return false
}

// classify wraps an SDK error in the generation sentinel for its class.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if apiErr, ok := asAPIError(err); ok {
		if isAuthError(apiErr) {
			return fmt.Errorf("%w: %s", generation.ErrAuthentication, redact.String(apiErr.Message))
		}
		return fmt.Errorf("%w: gemini status %d: %s",
			generation.ErrGenerationFailed, apiErr.Code, redact.String(apiErr.Message))
	}
	return fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
}

// keyStatus converts the result of a key-check call to a status.
func keyStatus(err error) *generation.KeyStatus {
	if err == nil {
		return &generation.KeyStatus{Valid: true, StatusCode: http.StatusOK, Message: generation.MessageKeyValid}
	}
	if apiErr, ok := asAPIError(err); ok {
		if isAuthError(apiErr) {
			return &generation.KeyStatus{
				Kind:       generation.KindAuthentication,
				StatusCode: apiErr.Code,
				Message:    generation.MessageKeyInvalid,
			}
		}
		return &generation.KeyStatus{
			Kind:       generation.KindUnavailable,
			StatusCode: apiErr.Code,
			Message:    fmt.Sprintf(generation.MessageKeyAPIError, redact.String(apiErr.Message)),
		}
	}
	// A reply that was blocked or empty still proves the key works.
	if errors.Is(err, generation.ErrInvalidResponse) || errors.Is(err, generation.ErrContentBlocked) {
		return &generation.KeyStatus{Valid: true, StatusCode: http.StatusOK, Message: generation.MessageKeyValid}
	}
	return &generation.KeyStatus{
		Kind:    generation.KindOf(err),
		Message: fmt.Sprintf(generation.MessageKeyUnreachable, redact.Error(err)),
	}
}
