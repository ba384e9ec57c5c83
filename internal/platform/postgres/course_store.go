package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

const (
	insertCourseQuery = `
		INSERT INTO courses (id, params, outline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	getCourseQuery = `
		SELECT id, params, outline, created_at, updated_at
		FROM courses
		WHERE id = $1
	`

	listCoursesQuery = `
		SELECT c.id, c.params, c.outline, c.created_at, c.updated_at,
			COALESCE(
				(SELECT json_agg(cc.chapter_id) FROM chapter_contents cc WHERE cc.course_id = c.id),
				'[]'::json
			)
		FROM courses c
		ORDER BY c.created_at DESC
	`

	deleteCourseQuery = `DELETE FROM courses WHERE id = $1`

	saveOutlineQuery = `
		UPDATE courses
		SET outline = $1, updated_at = $2
		WHERE id = $3
	`

	getChapterContentsQuery = `
		SELECT chapter_id, content
		FROM chapter_contents
		WHERE course_id = $1
	`

	getChapterContentQuery = `
		SELECT content, model_used, original_length, updated_at
		FROM chapter_contents
		WHERE course_id = $1 AND chapter_id = $2
	`

	saveChapterContentQuery = `
		INSERT INTO chapter_contents (course_id, chapter_id, content, model_used, original_length, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, chapter_id) DO UPDATE
		SET content = EXCLUDED.content,
			model_used = EXCLUDED.model_used,
			original_length = EXCLUDED.original_length,
			updated_at = EXCLUDED.updated_at
	`

	touchCourseQuery = `UPDATE courses SET updated_at = $1 WHERE id = $2`
)

// PostgresCourseStore implements the store.CourseStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCourseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCourseStore creates a new PostgreSQL implementation of the CourseStore interface.
// It accepts a database connection or transaction that satisfies the store.DBTX interface.
func NewPostgresCourseStore(db store.DBTX, logger *slog.Logger) *PostgresCourseStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCourseStore{
		db:     db,
		logger: logger.With(slog.String("component", "course_store")),
	}
}

// Ensure PostgresCourseStore implements store.CourseStore interface
var _ store.CourseStore = (*PostgresCourseStore)(nil)

// WithTx returns a new CourseStore instance that uses the provided transaction.
func (s *PostgresCourseStore) WithTx(tx *sql.Tx) store.CourseStore {
	return &PostgresCourseStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateCourse implements store.CourseStore.CreateCourse.
func (s *PostgresCourseStore) CreateCourse(ctx context.Context, course *domain.Course) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := course.Validate(); err != nil {
		log.Warn("invalid course",
			slog.String("error", err.Error()),
			slog.String("course_id", course.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	params, err := json.Marshal(course.Params)
	if err != nil {
		return fmt.Errorf("%w: failed to encode course params: %w", store.ErrInvalidEntity, err)
	}
	outline, err := marshalOutline(course.Outline)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, insertCourseQuery,
		course.ID,
		params,
		outline,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("course already exists", slog.String("course_id", course.ID.String()))
			return MapUniqueViolation(err, "course", nil)
		}
		log.Error("failed to insert course",
			slog.String("error", err.Error()),
			slog.String("course_id", course.ID.String()))
		return storeError("course", "create", err)
	}

	log.Debug("course created", slog.String("course_id", course.ID.String()))
	return nil
}

// GetCourse implements store.CourseStore.GetCourse.
func (s *PostgresCourseStore) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		course  domain.Course
		params  []byte
		outline []byte
	)
	err := s.db.QueryRowContext(ctx, getCourseQuery, id).Scan(
		&course.ID,
		&params,
		&outline,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("course not found", slog.String("course_id", id.String()))
			return nil, store.ErrCourseNotFound
		}
		log.Error("failed to get course",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return nil, storeError("course", "get", err)
	}

	if err := decodeCourse(&course, params, outline); err != nil {
		log.Error("stored course is unreadable",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return nil, err
	}
	return &course, nil
}

// ListCourses implements store.CourseStore.ListCourses.
func (s *PostgresCourseStore) ListCourses(ctx context.Context) ([]*domain.CourseSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, listCoursesQuery)
	if err != nil {
		log.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, storeError("course", "list", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	summaries := make([]*domain.CourseSummary, 0)
	for rows.Next() {
		var (
			course    domain.Course
			params    []byte
			outline   []byte
			generated []byte
		)
		if err := rows.Scan(&course.ID, &params, &outline, &course.CreatedAt, &course.UpdatedAt, &generated); err != nil {
			log.Error("failed to scan course row", slog.String("error", err.Error()))
			return nil, storeError("course", "list", err)
		}
		if err := decodeCourse(&course, params, outline); err != nil {
			log.Error("skipping unreadable course",
				slog.String("error", err.Error()),
				slog.String("course_id", course.ID.String()))
			continue
		}

		var chapterIDs []string
		if err := json.Unmarshal(generated, &chapterIDs); err != nil {
			return nil, storeError("course", "list", err)
		}
		contents := make(map[string]string, len(chapterIDs))
		for _, id := range chapterIDs {
			contents[id] = ""
		}

		summaries = append(summaries, summarize(&course, contents))
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating course rows", slog.String("error", err.Error()))
		return nil, storeError("course", "list", err)
	}

	return summaries, nil
}

// DeleteCourse implements store.CourseStore.DeleteCourse. Chapter contents
// and checkpoints are removed by the foreign key cascade.
func (s *PostgresCourseStore) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, deleteCourseQuery, id)
	if err != nil {
		log.Error("failed to delete course",
			slog.String("error", err.Error()),
			slog.String("course_id", id.String()))
		return storeError("course", "delete", err)
	}
	if err := CheckRowsAffected(result, store.ErrCourseNotFound); err != nil {
		return err
	}

	log.Debug("course deleted", slog.String("course_id", id.String()))
	return nil
}

// SaveOutline implements store.CourseStore.SaveOutline.
func (s *PostgresCourseStore) SaveOutline(ctx context.Context, courseID uuid.UUID, outline *domain.Outline) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if outline == nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyOutline)
	}
	if err := outline.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	data, err := marshalOutline(outline)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, saveOutlineQuery, data, time.Now().UTC(), courseID)
	if err != nil {
		log.Error("failed to save outline",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID.String()))
		return storeError("outline", "save", err)
	}
	if err := CheckRowsAffected(result, store.ErrCourseNotFound); err != nil {
		return err
	}

	log.Debug("outline saved",
		slog.String("course_id", courseID.String()),
		slog.Int("chapters", len(outline.Chapters)))
	return nil
}

// GetChapterContents implements store.CourseStore.GetChapterContents.
func (s *PostgresCourseStore) GetChapterContents(ctx context.Context, courseID uuid.UUID) (map[string]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, getChapterContentsQuery, courseID)
	if err != nil {
		log.Error("failed to load chapter contents",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID.String()))
		return nil, storeError("chapter_content", "list", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	contents := make(map[string]string)
	for rows.Next() {
		var chapterID, content string
		if err := rows.Scan(&chapterID, &content); err != nil {
			return nil, storeError("chapter_content", "list", err)
		}
		contents[chapterID] = content
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("chapter_content", "list", err)
	}
	return contents, nil
}

// GetChapterContent implements store.CourseStore.GetChapterContent.
func (s *PostgresCourseStore) GetChapterContent(
	ctx context.Context,
	courseID uuid.UUID,
	chapterID string,
) (*domain.ChapterContent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cc := &domain.ChapterContent{CourseID: courseID, ChapterID: chapterID}
	err := s.db.QueryRowContext(ctx, getChapterContentQuery, courseID, chapterID).Scan(
		&cc.Content,
		&cc.ModelUsed,
		&cc.OriginalLength,
		&cc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrChapterContentNotFound
		}
		log.Error("failed to get chapter content",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID.String()),
			slog.String("chapter_id", chapterID))
		return nil, storeError("chapter_content", "get", err)
	}
	return cc, nil
}

// SaveChapterContent implements store.CourseStore.SaveChapterContent.
func (s *PostgresCourseStore) SaveChapterContent(ctx context.Context, content *domain.ChapterContent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := content.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if content.UpdatedAt.IsZero() {
		content.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, saveChapterContentQuery,
		content.CourseID,
		content.ChapterID,
		content.Content,
		content.ModelUsed,
		content.OriginalLength,
		content.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrCourseNotFound
		}
		log.Error("failed to save chapter content",
			slog.String("error", err.Error()),
			slog.String("course_id", content.CourseID.String()),
			slog.String("chapter_id", content.ChapterID))
		return storeError("chapter_content", "save", err)
	}

	if _, err := s.db.ExecContext(ctx, touchCourseQuery, content.UpdatedAt, content.CourseID); err != nil {
		log.Warn("failed to update course timestamp",
			slog.String("error", err.Error()),
			slog.String("course_id", content.CourseID.String()))
	}

	log.Debug("chapter content saved",
		slog.String("course_id", content.CourseID.String()),
		slog.String("chapter_id", content.ChapterID),
		slog.Int("length", content.Length()))
	return nil
}

func marshalOutline(outline *domain.Outline) ([]byte, error) {
	if outline == nil {
		return nil, nil
	}
	data, err := json.Marshal(outline)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode outline: %w", store.ErrInvalidEntity, err)
	}
	return data, nil
}

func decodeCourse(course *domain.Course, params, outline []byte) error {
	if err := json.Unmarshal(params, &course.Params); err != nil {
		return store.NewStoreError("course", "decode", "invalid params document", err)
	}
	if len(outline) == 0 {
		return nil
	}
	var o domain.Outline
	if err := json.Unmarshal(outline, &o); err != nil {
		return store.NewStoreError("course", "decode", "invalid outline document", err)
	}
	course.Outline = &o
	return nil
}

func summarize(course *domain.Course, contents map[string]string) *domain.CourseSummary {
	summary := &domain.CourseSummary{
		ID:                course.ID,
		Title:             course.Params.Title,
		CompletionPercent: domain.CompletionPercent(course.Outline, contents),
		CreatedAt:         course.CreatedAt,
		UpdatedAt:         course.UpdatedAt,
	}
	if course.Outline != nil {
		summary.Chapters = len(course.Outline.Chapters)
		for _, ch := range course.Outline.Chapters {
			if _, ok := contents[ch.ID]; ok {
				summary.GeneratedChapters++
			}
		}
	}
	return summary
}
