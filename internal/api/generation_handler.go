package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gnicolai/AI-Courses-Generator/internal/api/shared"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/google/uuid"
)

// ContentGenerator is the generation use case set served by
// GenerationHandler.
type ContentGenerator interface {
	GenerateOutline(ctx context.Context, id uuid.UUID) (*generation.OutlineResult, error)
	GenerateChapter(ctx context.Context, id uuid.UUID, chapterID string) (*service.ChapterGeneration, error)
	GenerateMissingChapters(ctx context.Context, id uuid.UUID) (*service.BatchGeneration, error)
	VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error)
}

// GenerationHandler serves outline and chapter generation and the provider
// key check.
type GenerationHandler struct {
	generator ContentGenerator
	logger    *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(generator ContentGenerator, logger *slog.Logger) *GenerationHandler {
	if generator == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("generator cannot be nil for GenerationHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		generator: generator,
		logger:    logger.With(slog.String("component", "generation_handler")),
	}
}

// GenerateOutline handles POST /api/courses/{id}/outline.
func (h *GenerationHandler) GenerateOutline(w http.ResponseWriter, r *http.Request) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.generator.GenerateOutline(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile generare la struttura del corso")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GenerateChapter handles POST /api/courses/{id}/chapters/{chapterID}.
func (h *GenerationHandler) GenerateChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}
	chapterID, err := getPathChapterID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.generator.GenerateChapter(r.Context(), id, chapterID)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile generare il capitolo")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GenerateMissingChapters handles POST /api/courses/{id}/chapters. A batch
// that stops early still reports the chapters it generated.
func (h *GenerationHandler) GenerateMissingChapters(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handleCourseID(w, r, log)
	if !ok {
		return
	}

	report, err := h.generator.GenerateMissingChapters(r.Context(), id)
	if err != nil {
		if report == nil {
			HandleAPIError(w, r, err, "Impossibile generare i capitoli")
			return
		}
		status := MapErrorToStatusCode(err)
		log.Warn("chapter batch stopped",
			slog.String("course_id", id.String()),
			slog.String("failed_chapter", report.Failed),
			slog.Int("generated", len(report.Generated)),
			slog.Int("status_code", status))
		shared.RespondWithJSON(w, r, status, BatchGenerationErrorResponse{
			Error:   GetSafeErrorMessage(err),
			TraceID: shared.GetTraceID(r.Context()),
			Report:  report,
		})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// VerifyAPIKey handles POST /api/provider/verify.
func (h *GenerationHandler) VerifyAPIKey(w http.ResponseWriter, r *http.Request) {
	status, err := h.generator.VerifyAPIKey(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile verificare la chiave API")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}
