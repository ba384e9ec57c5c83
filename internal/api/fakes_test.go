package api

import (
	"context"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/google/uuid"
)

// MockCourseManager implements CourseManager with optional hooks.
type MockCourseManager struct {
	CreateCourseFn         func(ctx context.Context, params domain.CourseParams) (*domain.Course, error)
	ListCoursesFn          func(ctx context.Context) ([]*domain.CourseSummary, error)
	GetCourseFn            func(ctx context.Context, id uuid.UUID) (*service.CourseDetail, error)
	DeleteCourseFn         func(ctx context.Context, id uuid.UUID) error
	UpdateOutlineFn        func(ctx context.Context, id uuid.UUID, outline *domain.Outline) (*domain.Outline, error)
	UpdateChapterContentFn func(ctx context.Context, id uuid.UUID, chapterID, content string) (*domain.ChapterContent, error)
}

func (m *MockCourseManager) CreateCourse(ctx context.Context, params domain.CourseParams) (*domain.Course, error) {
	if m.CreateCourseFn != nil {
		return m.CreateCourseFn(ctx, params)
	}
	return domain.NewCourse(params)
}

func (m *MockCourseManager) ListCourses(ctx context.Context) ([]*domain.CourseSummary, error) {
	if m.ListCoursesFn != nil {
		return m.ListCoursesFn(ctx)
	}
	return nil, nil
}

func (m *MockCourseManager) GetCourse(ctx context.Context, id uuid.UUID) (*service.CourseDetail, error) {
	if m.GetCourseFn != nil {
		return m.GetCourseFn(ctx, id)
	}
	return nil, nil
}

func (m *MockCourseManager) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if m.DeleteCourseFn != nil {
		return m.DeleteCourseFn(ctx, id)
	}
	return nil
}

func (m *MockCourseManager) UpdateOutline(ctx context.Context, id uuid.UUID, outline *domain.Outline) (*domain.Outline, error) {
	if m.UpdateOutlineFn != nil {
		return m.UpdateOutlineFn(ctx, id, outline)
	}
	return outline, nil
}

func (m *MockCourseManager) UpdateChapterContent(
	ctx context.Context,
	id uuid.UUID,
	chapterID, content string,
) (*domain.ChapterContent, error) {
	if m.UpdateChapterContentFn != nil {
		return m.UpdateChapterContentFn(ctx, id, chapterID, content)
	}
	return domain.NewChapterContent(id, chapterID, content, "")
}

// MockContentGenerator implements ContentGenerator with optional hooks.
type MockContentGenerator struct {
	GenerateOutlineFn         func(ctx context.Context, id uuid.UUID) (*generation.OutlineResult, error)
	GenerateChapterFn         func(ctx context.Context, id uuid.UUID, chapterID string) (*service.ChapterGeneration, error)
	GenerateMissingChaptersFn func(ctx context.Context, id uuid.UUID) (*service.BatchGeneration, error)
	VerifyAPIKeyFn            func(ctx context.Context) (*generation.KeyStatus, error)
}

func (m *MockContentGenerator) GenerateOutline(ctx context.Context, id uuid.UUID) (*generation.OutlineResult, error) {
	if m.GenerateOutlineFn != nil {
		return m.GenerateOutlineFn(ctx, id)
	}
	return &generation.OutlineResult{}, nil
}

func (m *MockContentGenerator) GenerateChapter(
	ctx context.Context,
	id uuid.UUID,
	chapterID string,
) (*service.ChapterGeneration, error) {
	if m.GenerateChapterFn != nil {
		return m.GenerateChapterFn(ctx, id, chapterID)
	}
	return &service.ChapterGeneration{}, nil
}

func (m *MockContentGenerator) GenerateMissingChapters(ctx context.Context, id uuid.UUID) (*service.BatchGeneration, error) {
	if m.GenerateMissingChaptersFn != nil {
		return m.GenerateMissingChaptersFn(ctx, id)
	}
	return &service.BatchGeneration{}, nil
}

func (m *MockContentGenerator) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	if m.VerifyAPIKeyFn != nil {
		return m.VerifyAPIKeyFn(ctx)
	}
	return &generation.KeyStatus{Valid: true, Message: generation.MessageKeyValid}, nil
}

// MockExpansionManager implements ExpansionManager with optional hooks.
type MockExpansionManager struct {
	StartExpansionFn func(ctx context.Context, courseID uuid.UUID, opts expansion.Options) (*expansion.Summary, error)
	StatusFn         func(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	PauseFn          func(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	ResumeFn         func(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	CancelFn         func(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
}

func summaryIn(courseID uuid.UUID, state expansion.State) *expansion.Summary {
	return &expansion.Summary{
		JobID:    uuid.New(),
		CourseID: courseID,
		State:    state,
		Success:  true,
		Chapters: []expansion.ChapterDetail{},
	}
}

func callOr(
	fn func(context.Context, uuid.UUID) (*expansion.Summary, error),
	ctx context.Context,
	courseID uuid.UUID,
	state expansion.State,
) (*expansion.Summary, error) {
	if fn != nil {
		return fn(ctx, courseID)
	}
	return summaryIn(courseID, state), nil
}

func (m *MockExpansionManager) StartExpansion(
	ctx context.Context,
	courseID uuid.UUID,
	opts expansion.Options,
) (*expansion.Summary, error) {
	if m.StartExpansionFn != nil {
		return m.StartExpansionFn(ctx, courseID, opts)
	}
	return summaryIn(courseID, expansion.StateRunning), nil
}

func (m *MockExpansionManager) Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return callOr(m.StatusFn, ctx, courseID, expansion.StateNotStarted)
}

func (m *MockExpansionManager) Pause(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return callOr(m.PauseFn, ctx, courseID, expansion.StatePaused)
}

func (m *MockExpansionManager) Resume(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return callOr(m.ResumeFn, ctx, courseID, expansion.StateRunning)
}

func (m *MockExpansionManager) Cancel(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return callOr(m.CancelFn, ctx, courseID, expansion.StateCanceled)
}
