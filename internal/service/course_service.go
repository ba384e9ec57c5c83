package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

// JobTracker reports and drops expansion jobs.
type JobTracker interface {
	// Status returns the course's current job, or a non_iniziato summary.
	Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)

	// Forget drops the course's job.
	Forget(courseID uuid.UUID)
}

// CourseDetail is a course with its generated chapters.
type CourseDetail struct {
	*domain.Course
	Contents          map[string]string `json:"contents"`
	CompletionPercent int               `json:"completion_percent"`
}

// CourseService manages courses, their outlines and their chapter contents.
type CourseService struct {
	courses     store.CourseStore
	checkpoints store.CheckpointStore
	jobs        JobTracker
	logger      *slog.Logger
}

// NewCourseService creates a CourseService.
// It returns an error if any of the required dependencies are nil.
func NewCourseService(
	courses store.CourseStore,
	checkpoints store.CheckpointStore,
	jobs JobTracker,
	logger *slog.Logger,
) (*CourseService, error) {
	if courses == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "courses cannot be nil"}
	}
	if checkpoints == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "checkpoints cannot be nil"}
	}
	if jobs == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "jobs cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseService{
		courses:     courses,
		checkpoints: checkpoints,
		jobs:        jobs,
		logger:      logger.With("component", "course_service"),
	}, nil
}

// CreateCourse creates a course from its parameters.
func (s *CourseService) CreateCourse(ctx context.Context, params domain.CourseParams) (*domain.Course, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	course, err := domain.NewCourse(params)
	if err != nil {
		return nil, err
	}
	if err := s.courses.CreateCourse(ctx, course); err != nil {
		log.Error("failed to create course", "error", err)
		return nil, NewServiceError("create_course", "failed to save course", err)
	}

	log.Info("course created", "course_id", course.ID, "title", params.Title)
	return course, nil
}

// ListCourses returns every course, newest first.
func (s *CourseService) ListCourses(ctx context.Context) ([]*domain.CourseSummary, error) {
	courses, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, NewServiceError("list_courses", "failed to list courses", err)
	}
	return courses, nil
}

// GetCourse returns a course with its chapter contents and completion.
func (s *CourseService) GetCourse(ctx context.Context, id uuid.UUID) (*CourseDetail, error) {
	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	contents, err := s.courses.GetChapterContents(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_course", "failed to load chapter contents", err)
	}
	return &CourseDetail{
		Course:            course,
		Contents:          contents,
		CompletionPercent: domain.CompletionPercent(course.Outline, contents),
	}, nil
}

// DeleteCourse removes a course, its chapters, its checkpoints and its job.
// A running job stops after its current section.
func (s *CourseService) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", id)

	s.jobs.Forget(id)
	if err := s.courses.DeleteCourse(ctx, id); err != nil {
		return err
	}

	keys, err := s.checkpoints.List(ctx)
	if err != nil {
		// Orphans are removed by the next startup recovery.
		log.Warn("failed to list checkpoints of deleted course", "error", err)
		return nil
	}
	for _, key := range keys {
		if key.CourseID != id.String() {
			continue
		}
		if err := s.checkpoints.Delete(ctx, key.CourseID, key.ChapterID); err != nil {
			log.Warn("failed to delete checkpoint", "chapter_id", key.ChapterID, "error", err)
		}
	}

	log.Info("course deleted")
	return nil
}

// UpdateOutline replaces the outline of a course with a manually edited one.
func (s *CourseService) UpdateOutline(ctx context.Context, id uuid.UUID, outline *domain.Outline) (*domain.Outline, error) {
	if outline == nil {
		return nil, ErrInvalidOutline
	}
	if err := s.ensureIdle(ctx, id); err != nil {
		return nil, err
	}

	outline.Normalize()
	if err := outline.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutline, err)
	}
	if err := s.courses.SaveOutline(ctx, id, outline); err != nil {
		return nil, NewServiceError("update_outline", "failed to save outline", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("outline updated",
		"course_id", id,
		"chapters", len(outline.Chapters))
	return outline, nil
}

// UpdateChapterContent replaces a chapter's content with manually edited
// Markdown. Any checkpoint of the chapter is dropped.
func (s *CourseService) UpdateChapterContent(
	ctx context.Context,
	id uuid.UUID,
	chapterID string,
	content string,
) (*domain.ChapterContent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", id, "chapter_id", chapterID)

	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Outline == nil {
		return nil, ErrNoOutline
	}
	if _, _, ok := course.Outline.Chapter(chapterID); !ok {
		return nil, fmt.Errorf("%w: %s", generation.ErrChapterNotFound, chapterID)
	}
	if err := s.ensureIdle(ctx, id); err != nil {
		return nil, err
	}

	cc, err := domain.NewChapterContent(id, chapterID, content, "")
	if err != nil {
		return nil, err
	}
	if err := s.courses.SaveChapterContent(ctx, cc); err != nil {
		return nil, NewServiceError("update_chapter", "failed to save chapter content", err)
	}
	if err := s.checkpoints.Delete(ctx, id.String(), chapterID); err != nil {
		log.Warn("failed to delete checkpoint of edited chapter", "error", err)
	}

	log.Info("chapter content updated", "length", cc.Length())
	return cc, nil
}

// ensureIdle fails with expansion.ErrJobActive while a job is in_corso or
// in_pausa for the course.
func (s *CourseService) ensureIdle(ctx context.Context, id uuid.UUID) error {
	return ensureIdle(ctx, s.jobs, id)
}

func ensureIdle(ctx context.Context, jobs JobTracker, id uuid.UUID) error {
	summary, err := jobs.Status(ctx, id)
	if err != nil {
		return err
	}
	if summary.State.Active() {
		return expansion.ErrJobActive
	}
	return nil
}
