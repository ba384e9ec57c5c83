package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gnicolai/AI-Courses-Generator/internal/api/shared"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/google/uuid"
)

// ExpansionManager starts and steers expansion jobs.
type ExpansionManager interface {
	StartExpansion(ctx context.Context, courseID uuid.UUID, opts expansion.Options) (*expansion.Summary, error)
	Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Pause(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Resume(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Cancel(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
}

// ExpansionHandler serves the expansion job endpoints.
type ExpansionHandler struct {
	expansions ExpansionManager
	logger     *slog.Logger
}

// NewExpansionHandler creates an ExpansionHandler.
func NewExpansionHandler(expansions ExpansionManager, logger *slog.Logger) *ExpansionHandler {
	if expansions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("expansions cannot be nil for ExpansionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpansionHandler{
		expansions: expansions,
		logger:     logger.With(slog.String("component", "expansion_handler")),
	}
}

// StartExpansion handles POST /api/courses/{id}/expansion. The job runs in
// the background; the response carries its initial summary.
func (h *ExpansionHandler) StartExpansion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handleCourseID(w, r, log)
	if !ok {
		return
	}

	var req StartExpansionRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	summary, err := h.expansions.StartExpansion(r.Context(), id, req.Options())
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile avviare l'espansione")
		return
	}

	log.Info("expansion accepted",
		slog.String("course_id", id.String()),
		slog.String("job_id", summary.JobID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, summary)
}

// Status handles GET /api/courses/{id}/expansion.
func (h *ExpansionHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.expansions.Status)
}

// Pause handles POST /api/courses/{id}/expansion/pause.
func (h *ExpansionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.expansions.Pause)
}

// Resume handles POST /api/courses/{id}/expansion/resume.
func (h *ExpansionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.expansions.Resume)
}

// Cancel handles POST /api/courses/{id}/expansion/cancel.
func (h *ExpansionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.expansions.Cancel)
}

func (h *ExpansionHandler) control(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, uuid.UUID) (*expansion.Summary, error),
) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}

	summary, err := op(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile aggiornare l'espansione")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
