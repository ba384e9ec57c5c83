package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

// MockCourseStore is an in-memory store.CourseStore. Any Fn field that is set
// replaces the default behavior of its method.
type MockCourseStore struct {
	mu       sync.Mutex
	courses  map[uuid.UUID]*domain.Course
	contents map[uuid.UUID]map[string]*domain.ChapterContent

	CreateCourseFn       func(ctx context.Context, course *domain.Course) error
	SaveOutlineFn        func(ctx context.Context, courseID uuid.UUID, outline *domain.Outline) error
	SaveChapterContentFn func(ctx context.Context, content *domain.ChapterContent) error

	// SavedContents records every chapter content passed to SaveChapterContent.
	SavedContents []*domain.ChapterContent
}

// NewMockCourseStore creates an empty MockCourseStore.
func NewMockCourseStore() *MockCourseStore {
	return &MockCourseStore{
		courses:  make(map[uuid.UUID]*domain.Course),
		contents: make(map[uuid.UUID]map[string]*domain.ChapterContent),
	}
}

var _ store.CourseStore = (*MockCourseStore)(nil)

// AddCourse stores a course with the given outline and chapter contents and
// returns it.
func (m *MockCourseStore) AddCourse(params domain.CourseParams, outline *domain.Outline, contents map[string]string) *domain.Course {
	course, err := domain.NewCourse(params)
	if err != nil {
		panic(err)
	}
	course.Outline = outline

	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = course
	m.contents[course.ID] = make(map[string]*domain.ChapterContent)
	for id, text := range contents {
		m.contents[course.ID][id] = &domain.ChapterContent{
			CourseID:  course.ID,
			ChapterID: id,
			Content:   text,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return course
}

// Content returns the stored text of a chapter, or "" if there is none.
func (m *MockCourseStore) Content(courseID uuid.UUID, chapterID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cc, ok := m.contents[courseID][chapterID]; ok {
		return cc.Content
	}
	return ""
}

// CreateCourse implements store.CourseStore.
func (m *MockCourseStore) CreateCourse(ctx context.Context, course *domain.Course) error {
	if m.CreateCourseFn != nil {
		return m.CreateCourseFn(ctx, course)
	}
	if err := course.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[course.ID]; ok {
		return store.ErrDuplicate
	}
	c := *course
	m.courses[course.ID] = &c
	m.contents[course.ID] = make(map[string]*domain.ChapterContent)
	return nil
}

// GetCourse implements store.CourseStore.
func (m *MockCourseStore) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, store.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

// ListCourses implements store.CourseStore.
func (m *MockCourseStore) ListCourses(ctx context.Context) ([]*domain.CourseSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]*domain.CourseSummary, 0, len(m.courses))
	for id, c := range m.courses {
		texts := make(map[string]string, len(m.contents[id]))
		for chID, cc := range m.contents[id] {
			texts[chID] = cc.Content
		}
		s := &domain.CourseSummary{
			ID:                id,
			Title:             c.Params.Title,
			CompletionPercent: domain.CompletionPercent(c.Outline, texts),
			CreatedAt:         c.CreatedAt,
			UpdatedAt:         c.UpdatedAt,
		}
		if c.Outline != nil {
			s.Chapters = len(c.Outline.Chapters)
			for _, ch := range c.Outline.Chapters {
				if _, ok := texts[ch.ID]; ok {
					s.GeneratedChapters++
				}
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// DeleteCourse implements store.CourseStore.
func (m *MockCourseStore) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return store.ErrCourseNotFound
	}
	delete(m.courses, id)
	delete(m.contents, id)
	return nil
}

// SaveOutline implements store.CourseStore.
func (m *MockCourseStore) SaveOutline(ctx context.Context, courseID uuid.UUID, outline *domain.Outline) error {
	if m.SaveOutlineFn != nil {
		return m.SaveOutlineFn(ctx, courseID, outline)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return store.ErrCourseNotFound
	}
	c.Outline = outline
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// GetChapterContents implements store.CourseStore.
func (m *MockCourseStore) GetChapterContents(ctx context.Context, courseID uuid.UUID) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.contents[courseID]))
	for id, cc := range m.contents[courseID] {
		out[id] = cc.Content
	}
	return out, nil
}

// GetChapterContent implements store.CourseStore.
func (m *MockCourseStore) GetChapterContent(ctx context.Context, courseID uuid.UUID, chapterID string) (*domain.ChapterContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.contents[courseID][chapterID]
	if !ok {
		return nil, store.ErrChapterContentNotFound
	}
	cp := *cc
	return &cp, nil
}

// SaveChapterContent implements store.CourseStore.
func (m *MockCourseStore) SaveChapterContent(ctx context.Context, content *domain.ChapterContent) error {
	m.mu.Lock()
	cp := *content
	m.SavedContents = append(m.SavedContents, &cp)
	m.mu.Unlock()

	if m.SaveChapterContentFn != nil {
		return m.SaveChapterContentFn(ctx, content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[content.CourseID]; !ok {
		return store.ErrCourseNotFound
	}
	if m.contents[content.CourseID] == nil {
		m.contents[content.CourseID] = make(map[string]*domain.ChapterContent)
	}
	stored := *content
	m.contents[content.CourseID][content.ChapterID] = &stored
	return nil
}

// WithTx returns the same store; the mock has no transactions.
func (m *MockCourseStore) WithTx(tx *sql.Tx) store.CourseStore {
	return m
}
