package store

import (
	"context"
	"database/sql"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/google/uuid"
)

// CourseStore defines the interface for course, outline and chapter content
// persistence.
type CourseStore interface {
	// CreateCourse saves a new course with its parameters.
	// Returns ErrInvalidEntity if the course fails validation and
	// ErrDuplicate if a course with the same ID exists.
	CreateCourse(ctx context.Context, course *domain.Course) error

	// GetCourse retrieves a course, including its outline when one has been
	// saved. Returns ErrCourseNotFound if the course does not exist.
	GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error)

	// ListCourses returns a summary of every course, newest first.
	ListCourses(ctx context.Context) ([]*domain.CourseSummary, error)

	// DeleteCourse removes a course together with its chapter contents and
	// checkpoints. Returns ErrCourseNotFound if the course does not exist.
	DeleteCourse(ctx context.Context, id uuid.UUID) error

	// SaveOutline replaces the outline of a course.
	// Returns ErrCourseNotFound if the course does not exist.
	SaveOutline(ctx context.Context, courseID uuid.UUID, outline *domain.Outline) error

	// GetChapterContents returns the Markdown of every generated chapter,
	// keyed by chapter ID. Chapters without content are absent from the map.
	GetChapterContents(ctx context.Context, courseID uuid.UUID) (map[string]string, error)

	// GetChapterContent returns the stored content of one chapter.
	// Returns ErrChapterContentNotFound if the chapter has not been generated.
	GetChapterContent(ctx context.Context, courseID uuid.UUID, chapterID string) (*domain.ChapterContent, error)

	// SaveChapterContent inserts or replaces the content of a chapter,
	// including its OriginalLength. Returns ErrCourseNotFound if the course
	// does not exist.
	SaveChapterContent(ctx context.Context, content *domain.ChapterContent) error

	// WithTx returns a new CourseStore instance that uses the provided transaction.
	//
	// Example usage:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       return courseStore.WithTx(tx).SaveOutline(ctx, id, outline)
	//   })
	WithTx(tx *sql.Tx) CourseStore
}
