package mocks

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
)

// MockClient implements generation.Client for testing. Without a Fn field
// set, each method returns a small deterministic result.
type MockClient struct {
	GenerateOutlineFn         func(ctx context.Context, params domain.CourseParams) (*generation.OutlineResult, error)
	GenerateChapterContentFn  func(ctx context.Context, params domain.CourseParams, outline *domain.Outline, chapterID string, prior []generation.PriorChapter) (*generation.ChapterResult, error)
	GenerateExpandedContentFn func(ctx context.Context, req generation.ExpansionRequest) (*generation.ExpansionResult, error)
	VerifyAPIKeyFn            func(ctx context.Context) (*generation.KeyStatus, error)

	// ProviderName is returned by Provider; empty means generation.ProviderMock.
	ProviderName generation.Provider

	mu           sync.Mutex
	expandCalls  []generation.ExpansionRequest
	chapterCalls []string
	priorsByCall [][]generation.PriorChapter
	outlineCalls int
}

var _ generation.Client = (*MockClient)(nil)

// GenerateOutline implements generation.Client.
func (m *MockClient) GenerateOutline(ctx context.Context, params domain.CourseParams) (*generation.OutlineResult, error) {
	m.mu.Lock()
	m.outlineCalls++
	m.mu.Unlock()

	if m.GenerateOutlineFn != nil {
		return m.GenerateOutlineFn(ctx, params)
	}
	outline := &domain.Outline{
		Title:       params.Title,
		Description: params.Description,
		Chapters: []domain.Chapter{
			{ID: "cap1", Title: "Primo capitolo", Subtopics: []domain.Subtopic{{Title: "Uno"}}},
			{ID: "cap2", Title: "Secondo capitolo", Subtopics: []domain.Subtopic{{Title: "Due"}}},
		},
	}
	outline.Normalize()
	return &generation.OutlineResult{Outline: outline, Model: "mock-model"}, nil
}

// GenerateChapterContent implements generation.Client.
func (m *MockClient) GenerateChapterContent(
	ctx context.Context,
	params domain.CourseParams,
	outline *domain.Outline,
	chapterID string,
	prior []generation.PriorChapter,
) (*generation.ChapterResult, error) {
	m.mu.Lock()
	m.chapterCalls = append(m.chapterCalls, chapterID)
	m.priorsByCall = append(m.priorsByCall, prior)
	m.mu.Unlock()

	if m.GenerateChapterContentFn != nil {
		return m.GenerateChapterContentFn(ctx, params, outline, chapterID, prior)
	}
	ch, _, ok := outline.Chapter(chapterID)
	if !ok {
		return nil, generation.ErrChapterNotFound
	}
	return &generation.ChapterResult{
		Content: "# " + ch.Title + "\n\n## Introduzione\n\nTesto del capitolo " + chapterID + ".\n",
		Model:   "mock-model",
	}, nil
}

// GenerateExpandedContent implements generation.Client. The default doubles
// the original text.
func (m *MockClient) GenerateExpandedContent(ctx context.Context, req generation.ExpansionRequest) (*generation.ExpansionResult, error) {
	m.mu.Lock()
	m.expandCalls = append(m.expandCalls, req)
	m.mu.Unlock()

	if m.GenerateExpandedContentFn != nil {
		return m.GenerateExpandedContentFn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := req.Original + "\n\n" + strings.TrimSpace(req.Original) + " (ampliato)"
	return &generation.ExpansionResult{
		Content:        content,
		Model:          "mock-model",
		OriginalLength: utf8.RuneCountInString(req.Original),
		ExpandedLength: utf8.RuneCountInString(content),
		Attempts:       1,
	}, nil
}

// VerifyAPIKey implements generation.Client.
func (m *MockClient) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	if m.VerifyAPIKeyFn != nil {
		return m.VerifyAPIKeyFn(ctx)
	}
	return &generation.KeyStatus{Valid: true, StatusCode: 200, Message: generation.MessageKeyValid}, nil
}

// Provider implements generation.Client.
func (m *MockClient) Provider() generation.Provider {
	if m.ProviderName == "" {
		return generation.ProviderMock
	}
	return m.ProviderName
}

// ExpandCalls returns the expansion requests received so far.
func (m *MockClient) ExpandCalls() []generation.ExpansionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ExpansionRequest(nil), m.expandCalls...)
}

// ChapterCalls returns the chapter IDs requested so far and the prior
// chapters passed with each call.
func (m *MockClient) ChapterCalls() ([]string, [][]generation.PriorChapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.chapterCalls...), append([][]generation.PriorChapter(nil), m.priorsByCall...)
}

// OutlineCalls returns the number of GenerateOutline calls.
func (m *MockClient) OutlineCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outlineCalls
}
