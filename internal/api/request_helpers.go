package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gnicolai/AI-Courses-Generator/internal/api/shared"
	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// getPathChapterID extracts the chapter ID path parameter.
func getPathChapterID(r *http.Request) (string, error) {
	chapterID := strings.TrimSpace(chi.URLParam(r, "chapterID"))
	if chapterID == "" {
		return "", fmt.Errorf("%w: chapter ID is required", domain.ErrInvalidID)
	}
	return chapterID, nil
}

// handleCourseID extracts the course ID path parameter and writes an error
// response when it is missing or malformed.
func handleCourseID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContext(r.Context())
	}
	id, err := getPathUUID(r, "id")
	if err != nil {
		log.Warn("invalid course ID", slog.String("value", chi.URLParam(r, "id")))
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into v and validates it. It
// writes the error response itself and reports whether the caller may go on.
// With allowEmpty an absent body leaves v untouched.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		if !(allowEmpty && errors.Is(err, shared.ErrEmptyBody)) {
			HandleAPIError(w, r, err, "")
			return false
		}
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}
