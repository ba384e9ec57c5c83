//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/postgres"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/gnicolai/AI-Courses-Generator/internal/task"
	"github.com/gnicolai/AI-Courses-Generator/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCourse(t *testing.T, courses *postgres.PostgresCourseStore) *domain.Course {
	t.Helper()

	course, err := domain.NewCourse(domain.CourseParams{
		Title:       "Go concorrente",
		Description: "Goroutine e canali",
		Audience:    "sviluppatori",
		Complexity:  "intermedio",
		Tone:        "pratico",
	})
	require.NoError(t, err)
	require.NoError(t, courses.CreateCourse(context.Background(), course))
	t.Cleanup(func() { _ = courses.DeleteCourse(context.Background(), course.ID) })
	return course
}

func TestCourseStoreIntegration(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	courses := postgres.NewPostgresCourseStore(db, nil)
	course := createCourse(t, courses)

	t.Run("duplicate course", func(t *testing.T) {
		err := courses.CreateCourse(ctx, course)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("outline and chapter content", func(t *testing.T) {
		outline := &domain.Outline{
			Title: "Go concorrente",
			Chapters: []domain.Chapter{
				{ID: "cap1", Title: "Goroutine"},
				{ID: "cap2", Title: "Canali"},
			},
		}
		require.NoError(t, courses.SaveOutline(ctx, course.ID, outline))

		content, err := domain.NewChapterContent(course.ID, "cap1", "# Goroutine\n\n## Avvio\n\nTesto.", "mock-model")
		require.NoError(t, err)
		require.NoError(t, courses.SaveChapterContent(ctx, content))

		got, err := courses.GetCourse(ctx, course.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Outline)
		assert.Len(t, got.Outline.Chapters, 2)

		contents, err := courses.GetChapterContents(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"cap1": content.Content}, contents)

		_, err = courses.GetChapterContent(ctx, course.ID, "cap2")
		assert.ErrorIs(t, err, store.ErrChapterContentNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			content, err := domain.NewChapterContent(course.ID, "cap2", "# Canali\n\nTesto.", "mock-model")
			if err != nil {
				return err
			}
			if err := courses.WithTx(tx).SaveChapterContent(ctx, content); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)

		_, err = courses.GetChapterContent(ctx, course.ID, "cap2")
		assert.ErrorIs(t, err, store.ErrChapterContentNotFound)
	})

	t.Run("missing course", func(t *testing.T) {
		_, err := courses.GetCourse(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrCourseNotFound)
		assert.ErrorIs(t, courses.DeleteCourse(ctx, uuid.New()), store.ErrCourseNotFound)
	})
}

func TestCheckpointStoreIntegration(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	courses := postgres.NewPostgresCourseStore(db, nil)
	checkpoints := postgres.NewPostgresCheckpointStore(db, nil)
	course := createCourse(t, courses)

	cp := &store.Checkpoint{
		CourseID:     course.ID.String(),
		ChapterID:    "cap1",
		Sections:     []markdown.Section{{Title: "Avvio", Content: "## Avvio\n\nTesto ampliato."}},
		SourceDigest: store.Digest("# Goroutine"),
		UpdatedAt:    time.Now().UTC(),
	}

	_, err := checkpoints.Load(ctx, cp.CourseID, cp.ChapterID)
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)

	require.NoError(t, checkpoints.Save(ctx, cp))
	cp.Sections = append(cp.Sections, markdown.Section{Title: "Fine", Content: "## Fine\n\nAltro testo."})
	require.NoError(t, checkpoints.Save(ctx, cp))

	got, err := checkpoints.Load(ctx, cp.CourseID, cp.ChapterID)
	require.NoError(t, err)
	assert.Equal(t, cp.Sections, got.Sections)
	assert.Equal(t, cp.SourceDigest, got.SourceDigest)

	keys, err := checkpoints.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, cp.Key())

	require.NoError(t, checkpoints.Delete(ctx, cp.CourseID, cp.ChapterID))
	require.NoError(t, checkpoints.Delete(ctx, cp.CourseID, cp.ChapterID))
	_, err = checkpoints.Load(ctx, cp.CourseID, cp.ChapterID)
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

type storedTask struct {
	id uuid.UUID
}

func (t storedTask) ID() uuid.UUID                     { return t.id }
func (t storedTask) Type() string                      { return task.TaskTypeExpansion }
func (t storedTask) Payload() []byte                   { return []byte(`{"course_id":"x"}`) }
func (t storedTask) Status() task.TaskStatus           { return task.TaskStatusPending }
func (t storedTask) Execute(ctx context.Context) error { return nil }

func TestTaskStoreIntegration(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(tx, nil)

		pendingTask := storedTask{id: uuid.New()}
		processingTask := storedTask{id: uuid.New()}

		require.NoError(t, tasks.SaveTask(ctx, pendingTask))
		require.NoError(t, tasks.SaveTask(ctx, processingTask))
		require.NoError(t, tasks.UpdateTaskStatus(ctx, processingTask.id, task.TaskStatusProcessing, ""))

		pending, err := tasks.GetPendingTasks(ctx)
		require.NoError(t, err)
		assert.True(t, containsRecord(pending, pendingTask.id))
		assert.False(t, containsRecord(pending, processingTask.id))

		processing, err := tasks.GetProcessingTasks(ctx)
		require.NoError(t, err)
		require.True(t, containsRecord(processing, processingTask.id))
		for _, rec := range processing {
			if rec.ID == processingTask.id {
				assert.Equal(t, task.TaskTypeExpansion, rec.Type)
				assert.JSONEq(t, `{"course_id":"x"}`, string(rec.Payload))
			}
		}

		require.NoError(t, tasks.UpdateTaskStatus(ctx, uuid.New(), task.TaskStatusFailed, "missing"))
	})
}

func containsRecord(records []*task.Record, id uuid.UUID) bool {
	for _, rec := range records {
		if rec.ID == id {
			return true
		}
	}
	return false
}
