package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

const (
	loadCheckpointQuery = `
		SELECT sections, source_digest, updated_at
		FROM expansion_checkpoints
		WHERE course_id = $1 AND chapter_id = $2
	`

	saveCheckpointQuery = `
		INSERT INTO expansion_checkpoints (course_id, chapter_id, sections, source_digest, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (course_id, chapter_id) DO UPDATE
		SET sections = EXCLUDED.sections,
			source_digest = EXCLUDED.source_digest,
			updated_at = EXCLUDED.updated_at
	`

	deleteCheckpointQuery = `
		DELETE FROM expansion_checkpoints
		WHERE course_id = $1 AND chapter_id = $2
	`

	listCheckpointsQuery = `
		SELECT course_id, chapter_id
		FROM expansion_checkpoints
		ORDER BY updated_at ASC
	`
)

// PostgresCheckpointStore implements store.CheckpointStore on the
// expansion_checkpoints table.
type PostgresCheckpointStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.CheckpointStore = (*PostgresCheckpointStore)(nil)

// NewPostgresCheckpointStore creates a checkpoint store over db.
func NewPostgresCheckpointStore(db store.DBTX, logger *slog.Logger) *PostgresCheckpointStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCheckpointStore{
		db:     db,
		logger: logger.With(slog.String("component", "checkpoint_store")),
	}
}

// Load implements store.CheckpointStore.Load.
func (s *PostgresCheckpointStore) Load(ctx context.Context, courseID, chapterID string) (*store.Checkpoint, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, err := uuid.Parse(courseID)
	if err != nil {
		return nil, store.ErrCheckpointNotFound
	}

	cp := &store.Checkpoint{CourseID: courseID, ChapterID: chapterID}
	var sections []byte
	err = s.db.QueryRowContext(ctx, loadCheckpointQuery, id, chapterID).Scan(
		&sections,
		&cp.SourceDigest,
		&cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCheckpointNotFound
		}
		log.Error("failed to load checkpoint",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID))
		return nil, storeError("checkpoint", "load", err)
	}

	if err := json.Unmarshal(sections, &cp.Sections); err != nil {
		return nil, store.NewStoreError("checkpoint", "load", "invalid sections document",
			fmt.Errorf("%w: %w", store.ErrPersistence, err))
	}
	return cp, nil
}

// Save implements store.CheckpointStore.Save.
func (s *PostgresCheckpointStore) Save(ctx context.Context, cp *store.Checkpoint) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, err := uuid.Parse(cp.CourseID)
	if err != nil {
		return fmt.Errorf("%w: checkpoint course ID %q is not a UUID", store.ErrInvalidEntity, cp.CourseID)
	}
	sections, err := json.Marshal(cp.Sections)
	if err != nil {
		return fmt.Errorf("%w: failed to encode sections: %w", store.ErrInvalidEntity, err)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, saveCheckpointQuery,
		id, cp.ChapterID, sections, cp.SourceDigest, cp.UpdatedAt); err != nil {
		log.Error("failed to save checkpoint",
			slog.String("error", err.Error()),
			slog.String("course_id", cp.CourseID),
			slog.String("chapter_id", cp.ChapterID))
		return storeError("checkpoint", "save", err)
	}

	log.Debug("checkpoint saved",
		slog.String("course_id", cp.CourseID),
		slog.String("chapter_id", cp.ChapterID),
		slog.Int("sections", len(cp.Sections)))
	return nil
}

// Delete implements store.CheckpointStore.Delete.
func (s *PostgresCheckpointStore) Delete(ctx context.Context, courseID, chapterID string) error {
	id, err := uuid.Parse(courseID)
	if err != nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, deleteCheckpointQuery, id, chapterID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete checkpoint",
			slog.String("error", err.Error()),
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID))
		return storeError("checkpoint", "delete", err)
	}
	return nil
}

// List implements store.CheckpointStore.List.
func (s *PostgresCheckpointStore) List(ctx context.Context) ([]store.CheckpointKey, error) {
	rows, err := s.db.QueryContext(ctx, listCheckpointsQuery)
	if err != nil {
		return nil, storeError("checkpoint", "list", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []store.CheckpointKey
	for rows.Next() {
		var (
			id        uuid.UUID
			chapterID string
		)
		if err := rows.Scan(&id, &chapterID); err != nil {
			return nil, storeError("checkpoint", "list", err)
		}
		keys = append(keys, store.CheckpointKey{CourseID: id.String(), ChapterID: chapterID})
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("checkpoint", "list", err)
	}
	return keys, nil
}
