package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/mocks"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/gnicolai/AI-Courses-Generator/internal/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type env struct {
	courses     *mocks.MockCourseStore
	checkpoints *mocks.MockCheckpointStore
	client      *mocks.MockClient
	jobs        *expansion.MemoryJobStore
	ctrl        *expansion.Controller
	emitter     *events.InMemoryEventEmitter
	handler     *recordingHandler

	courseSvc     *service.CourseService
	generationSvc *service.GenerationService
	expansionSvc  *service.ExpansionService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		courses:     mocks.NewMockCourseStore(),
		checkpoints: mocks.NewMockCheckpointStore(),
		client:      &mocks.MockClient{},
		jobs:        expansion.NewMemoryJobStore(),
		emitter:     events.NewInMemoryEventEmitter(discard),
		handler:     &recordingHandler{},
	}
	e.emitter.RegisterHandler(e.handler)
	e.ctrl = expansion.NewController(e.courses, e.checkpoints, e.client, e.jobs, nil, expansion.Config{Logger: discard})

	var err error
	e.courseSvc, err = service.NewCourseService(e.courses, e.checkpoints, e.ctrl, discard)
	require.NoError(t, err)
	e.generationSvc, err = service.NewGenerationService(e.courses, e.client, e.ctrl, discard)
	require.NoError(t, err)
	e.expansionSvc, err = service.NewExpansionService(e.ctrl, e.emitter, discard)
	require.NoError(t, err)
	return e
}

// markActive records a running job for the course.
func (e *env) markActive(t *testing.T, courseID uuid.UUID) {
	t.Helper()
	require.NoError(t, e.jobs.Begin(&expansion.Summary{
		JobID:    uuid.New(),
		CourseID: courseID,
		State:    expansion.StateRunning,
	}))
}

type recordingHandler struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) received() []*events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*events.Event(nil), h.events...)
}

func params() domain.CourseParams {
	return domain.CourseParams{
		Title:       "Fotografia digitale",
		Description: "Dalla teoria allo scatto",
		Audience:    "principianti",
		Complexity:  "base",
		Tone:        "amichevole",
	}
}

func outline(ids ...string) *domain.Outline {
	o := &domain.Outline{Title: "Fotografia digitale"}
	for _, id := range ids {
		o.Chapters = append(o.Chapters, domain.Chapter{ID: id, Title: "Capitolo " + id})
	}
	o.Normalize()
	return o
}

func TestNewServicesRejectNilDependencies(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := service.NewCourseService(nil, e.checkpoints, e.ctrl, nil)
	assert.Error(t, err)
	_, err = service.NewGenerationService(e.courses, nil, e.ctrl, nil)
	assert.Error(t, err)
	_, err = service.NewExpansionService(e.ctrl, nil, nil)
	assert.Error(t, err)
}

func TestCourseService_CreateAndGet(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	course, err := e.courseSvc.CreateCourse(ctx, params())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, course.ID)

	_, err = e.courseSvc.CreateCourse(ctx, domain.CourseParams{Title: "Solo titolo"})
	assert.ErrorIs(t, err, domain.ErrMissingCourseField)

	seeded := e.courses.AddCourse(params(), outline("cap1", "cap2"), map[string]string{"cap1": "# Uno\n\nTesto."})
	detail, err := e.courseSvc.GetCourse(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, detail.CompletionPercent)
	assert.Equal(t, map[string]string{"cap1": "# Uno\n\nTesto."}, detail.Contents)

	_, err = e.courseSvc.GetCourse(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestCourseService_DeleteCourse(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	doomed := e.courses.AddCourse(params(), outline("cap1"), map[string]string{"cap1": "# Uno"})
	kept := e.courses.AddCourse(params(), outline("cap1"), map[string]string{"cap1": "# Uno"})
	e.checkpoints.Put(&store.Checkpoint{CourseID: doomed.ID.String(), ChapterID: "cap1"})
	e.checkpoints.Put(&store.Checkpoint{CourseID: kept.ID.String(), ChapterID: "cap1"})
	e.markActive(t, doomed.ID)

	require.NoError(t, e.courseSvc.DeleteCourse(ctx, doomed.ID))

	_, ok := e.jobs.Get(doomed.ID)
	assert.False(t, ok, "job must be forgotten")
	assert.Nil(t, e.checkpoints.Get(doomed.ID.String(), "cap1"))
	assert.NotNil(t, e.checkpoints.Get(kept.ID.String(), "cap1"))

	assert.ErrorIs(t, e.courseSvc.DeleteCourse(ctx, doomed.ID), store.ErrCourseNotFound)
}

func TestCourseService_UpdateOutline(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), nil, nil)

	edited := &domain.Outline{Chapters: []domain.Chapter{{Title: "Luce"}, {Title: "Ombra"}}}
	got, err := e.courseSvc.UpdateOutline(ctx, course.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, "cap1", got.Chapters[0].ID)
	assert.Equal(t, "cap2", got.Chapters[1].ID)

	_, err = e.courseSvc.UpdateOutline(ctx, course.ID, &domain.Outline{})
	assert.ErrorIs(t, err, service.ErrInvalidOutline)
	assert.ErrorIs(t, err, domain.ErrEmptyOutline)

	e.markActive(t, course.ID)
	_, err = e.courseSvc.UpdateOutline(ctx, course.ID, outline("cap1"))
	assert.ErrorIs(t, err, expansion.ErrJobActive)
}

func TestCourseService_UpdateChapterContent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1", "cap2"), nil)
	e.checkpoints.Put(&store.Checkpoint{CourseID: course.ID.String(), ChapterID: "cap1"})

	cc, err := e.courseSvc.UpdateChapterContent(ctx, course.ID, "cap1", "# Luce\n\nTesto scritto a mano.")
	require.NoError(t, err)
	assert.Equal(t, "# Luce\n\nTesto scritto a mano.", e.courses.Content(course.ID, "cap1"))
	assert.Empty(t, cc.ModelUsed)
	assert.Nil(t, e.checkpoints.Get(course.ID.String(), "cap1"), "stale checkpoint must be dropped")

	_, err = e.courseSvc.UpdateChapterContent(ctx, course.ID, "cap9", "# Nove")
	assert.ErrorIs(t, err, generation.ErrChapterNotFound)

	_, err = e.courseSvc.UpdateChapterContent(ctx, course.ID, "cap2", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	bare := e.courses.AddCourse(params(), nil, nil)
	_, err = e.courseSvc.UpdateChapterContent(ctx, bare.ID, "cap1", "# Uno")
	assert.ErrorIs(t, err, service.ErrNoOutline)
}

func TestGenerationService_GenerateOutline(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), nil, nil)

	result, err := e.generationSvc.GenerateOutline(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "mock-model", result.Model)

	stored, err := e.courses.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Outline)
	assert.Len(t, stored.Outline.Chapters, 2)

	e.client.GenerateOutlineFn = func(ctx context.Context, p domain.CourseParams) (*generation.OutlineResult, error) {
		return &generation.OutlineResult{Outline: &domain.Outline{}}, nil
	}
	_, err = e.generationSvc.GenerateOutline(ctx, course.ID)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestGenerationService_GenerateChapter(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1", "cap2"), map[string]string{"cap1": "# Uno\n\nLa luce."})

	gen, err := e.generationSvc.GenerateChapter(ctx, course.ID, "cap2")
	require.NoError(t, err)
	assert.Equal(t, "mock-model", gen.Content.ModelUsed)
	assert.Equal(t, gen.Content.Content, e.courses.Content(course.ID, "cap2"))

	ids, priors := e.client.ChapterCalls()
	require.Equal(t, []string{"cap2"}, ids)
	require.Len(t, priors[0], 1)
	assert.Equal(t, "cap1", priors[0][0].ID)

	_, err = e.generationSvc.GenerateChapter(ctx, course.ID, "cap7")
	assert.ErrorIs(t, err, generation.ErrChapterNotFound)

	bare := e.courses.AddCourse(params(), nil, nil)
	_, err = e.generationSvc.GenerateChapter(ctx, bare.ID, "cap1")
	assert.ErrorIs(t, err, service.ErrNoOutline)
}

func TestGenerationService_GenerateMissingChapters(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1", "cap2", "cap3"), map[string]string{"cap2": "# Due\n\nGià scritto."})

	report, err := e.generationSvc.GenerateMissingChapters(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cap1", "cap3"}, report.Generated)
	assert.Equal(t, []string{"cap2"}, report.Skipped)

	ids, priors := e.client.ChapterCalls()
	require.Equal(t, []string{"cap1", "cap3"}, ids)
	assert.Empty(t, priors[0])
	require.Len(t, priors[1], 2, "cap3 sees cap1 and cap2")
	assert.Equal(t, "cap1", priors[1][0].ID)
	assert.Equal(t, "cap2", priors[1][1].ID)
}

func TestGenerationService_GenerateMissingChaptersStopsAtFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1", "cap2", "cap3"), nil)

	e.client.GenerateChapterContentFn = func(
		ctx context.Context,
		p domain.CourseParams,
		o *domain.Outline,
		chapterID string,
		prior []generation.PriorChapter,
	) (*generation.ChapterResult, error) {
		if chapterID == "cap2" {
			return nil, fmt.Errorf("%w: 503", generation.ErrTransientFailure)
		}
		return &generation.ChapterResult{Content: "# " + chapterID, Model: "m"}, nil
	}

	report, err := e.generationSvc.GenerateMissingChapters(ctx, course.ID)
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	require.NotNil(t, report)
	assert.Equal(t, []string{"cap1"}, report.Generated)
	assert.Equal(t, "cap2", report.Failed)
	assert.Empty(t, e.courses.Content(course.ID, "cap3"))
}

func TestGenerationService_RejectsWhileExpanding(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1"), nil)
	e.markActive(t, course.ID)

	_, err := e.generationSvc.GenerateOutline(ctx, course.ID)
	assert.ErrorIs(t, err, expansion.ErrJobActive)
	_, err = e.generationSvc.GenerateChapter(ctx, course.ID, "cap1")
	assert.ErrorIs(t, err, expansion.ErrJobActive)
	_, err = e.generationSvc.GenerateMissingChapters(ctx, course.ID)
	assert.ErrorIs(t, err, expansion.ErrJobActive)
}

func TestGenerationService_VerifyAPIKey(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	status, err := e.generationSvc.VerifyAPIKey(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Valid)

	e.client.VerifyAPIKeyFn = func(ctx context.Context) (*generation.KeyStatus, error) {
		return nil, errors.New("no transport")
	}
	_, err = e.generationSvc.VerifyAPIKey(context.Background())
	assert.Error(t, err)
}

func TestExpansionService_StartQueuesJob(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1"), map[string]string{"cap1": "# Uno\n\n## A\n\nTesto."})

	summary, err := e.expansionSvc.StartExpansion(ctx, course.ID, expansion.Options{Factor: 2})
	require.NoError(t, err)
	assert.Equal(t, expansion.StateRunning, summary.State)
	assert.Equal(t, 1, summary.TotalChapters)

	received := e.handler.received()
	require.Len(t, received, 1)
	assert.Equal(t, events.TypeExpansionRequested, received[0].Type)

	var payload task.ExpansionPayload
	require.NoError(t, received[0].UnmarshalPayload(&payload))
	assert.Equal(t, course.ID, payload.CourseID)
	assert.Equal(t, summary.JobID, payload.JobID)
	assert.True(t, summary.StartedAt.Equal(payload.StartedAt))
	assert.Equal(t, 2, payload.Options.Factor)
	assert.Equal(t, expansion.DefaultOptions().Style, payload.Options.Style)

	_, err = e.expansionSvc.StartExpansion(ctx, course.ID, expansion.Options{})
	assert.ErrorIs(t, err, expansion.ErrJobActive)
	assert.Len(t, e.handler.received(), 1)
}

func TestExpansionService_StartRejectsIncompleteCourse(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	course := e.courses.AddCourse(params(), outline("cap1", "cap2"), map[string]string{"cap1": "# Uno"})

	_, err := e.expansionSvc.StartExpansion(context.Background(), course.ID, expansion.Options{})

	var incomplete *expansion.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 50, incomplete.Percent)
	assert.Empty(t, e.handler.received())
}

func TestExpansionService_StartAbortsWhenQueueingFails(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1"), map[string]string{"cap1": "# Uno"})
	e.handler.err = task.ErrQueueFull

	_, err := e.expansionSvc.StartExpansion(ctx, course.ID, expansion.Options{})
	assert.ErrorIs(t, err, task.ErrQueueFull)

	status, err := e.expansionSvc.Status(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StateFailed, status.State)
	assert.False(t, status.Success)
}

func TestExpansionService_Transitions(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	course := e.courses.AddCourse(params(), outline("cap1"), map[string]string{"cap1": "# Uno"})

	status, err := e.expansionSvc.Status(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StateNotStarted, status.State)

	_, err = e.expansionSvc.Pause(ctx, course.ID)
	assert.ErrorIs(t, err, expansion.ErrNoJob)

	_, err = e.expansionSvc.StartExpansion(ctx, course.ID, expansion.Options{})
	require.NoError(t, err)

	paused, err := e.expansionSvc.Pause(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StatePaused, paused.State)

	resumed, err := e.expansionSvc.Resume(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StateRunning, resumed.State)

	canceled, err := e.expansionSvc.Cancel(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StateCanceled, canceled.State)

	_, err = e.expansionSvc.Resume(ctx, course.ID)
	assert.ErrorIs(t, err, expansion.ErrInvalidTransition)
}
