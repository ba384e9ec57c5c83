package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gnicolai/AI-Courses-Generator/internal/api/shared"
	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/google/uuid"
)

// CourseManager is the course lifecycle used by CourseHandler.
type CourseManager interface {
	CreateCourse(ctx context.Context, params domain.CourseParams) (*domain.Course, error)
	ListCourses(ctx context.Context) ([]*domain.CourseSummary, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*service.CourseDetail, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	UpdateOutline(ctx context.Context, id uuid.UUID, outline *domain.Outline) (*domain.Outline, error)
	UpdateChapterContent(ctx context.Context, id uuid.UUID, chapterID, content string) (*domain.ChapterContent, error)
}

// CourseHandler serves course creation, lookup and manual edits.
type CourseHandler struct {
	courses CourseManager
	logger  *slog.Logger
}

// NewCourseHandler creates a CourseHandler.
func NewCourseHandler(courses CourseManager, logger *slog.Logger) *CourseHandler {
	if courses == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("courses cannot be nil for CourseHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseHandler{
		courses: courses,
		logger:  logger.With(slog.String("component", "course_handler")),
	}
}

// CreateCourse handles POST /api/courses.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateCourseRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	course, err := h.courses.CreateCourse(r.Context(), req.Params())
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile creare il corso")
		return
	}

	log.Debug("course created", slog.String("course_id", course.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, course)
}

// ListCourses handles GET /api/courses.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile recuperare i corsi")
		return
	}
	if courses == nil {
		courses = []*domain.CourseSummary{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CourseListResponse{Courses: courses})
}

// GetCourse handles GET /api/courses/{id}.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.courses.GetCourse(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile recuperare il corso")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// DeleteCourse handles DELETE /api/courses/{id}.
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handleCourseID(w, r, log)
	if !ok {
		return
	}

	if err := h.courses.DeleteCourse(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Impossibile eliminare il corso")
		return
	}

	log.Debug("course deleted", slog.String("course_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateOutline handles PUT /api/courses/{id}/outline.
func (h *CourseHandler) UpdateOutline(w http.ResponseWriter, r *http.Request) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}

	var outline domain.Outline
	if err := shared.DecodeJSON(w, r, &outline); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	saved, err := h.courses.UpdateOutline(r.Context(), id, &outline)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile salvare la struttura")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, saved)
}

// UpdateChapter handles PUT /api/courses/{id}/chapters/{chapterID}.
func (h *CourseHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := handleCourseID(w, r, h.logger)
	if !ok {
		return
	}
	chapterID, err := getPathChapterID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateChapterRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	content, err := h.courses.UpdateChapterContent(r.Context(), id, chapterID, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "Impossibile salvare il capitolo")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, content)
}
