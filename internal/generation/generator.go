package generation

import (
	"context"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
)

// Provider names an LLM backend.
type Provider string

// Supported providers.
const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
	ProviderGemini   Provider = "gemini"
	ProviderMock     Provider = "mock"
)

// Client generates course content with an LLM provider.
// This interface serves as a boundary between the application core and
// external AI/LLM services.
type Client interface {
	// GenerateOutline produces a course outline sized by the course complexity.
	GenerateOutline(ctx context.Context, params domain.CourseParams) (*OutlineResult, error)

	// GenerateChapterContent writes the Markdown body of one outline chapter.
	// prior carries short summaries of earlier chapters for continuity.
	// An unknown chapterID yields ErrChapterNotFound.
	GenerateChapterContent(
		ctx context.Context,
		params domain.CourseParams,
		outline *domain.Outline,
		chapterID string,
		prior []PriorChapter,
	) (*ChapterResult, error)

	// GenerateExpandedContent rewrites one section at greater length.
	GenerateExpandedContent(ctx context.Context, req ExpansionRequest) (*ExpansionResult, error)

	// VerifyAPIKey performs a minimal authenticated call. Provider failures
	// are reported in the returned status, not as an error.
	VerifyAPIKey(ctx context.Context) (*KeyStatus, error)

	// Provider names the backend.
	Provider() Provider
}

// OutlineResult is a parsed outline and the model that produced it.
type OutlineResult struct {
	Outline *domain.Outline `json:"outline"`
	Model   string          `json:"model"`
	Warning string          `json:"warning,omitempty"`
}

// ChapterResult is normalized chapter Markdown.
type ChapterResult struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Warning string `json:"warning,omitempty"`
}

// PriorChapter summarizes an already generated chapter.
type PriorChapter struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// DefaultExpansionAttempts is used when ExpansionRequest.MaxAttempts is unset.
const DefaultExpansionAttempts = 3

// ExpansionRequest asks for one section to be rewritten at greater length.
type ExpansionRequest struct {
	// CourseID, ChapterID and SectionIndex identify the section in logs.
	CourseID     string
	ChapterID    string
	SectionIndex int

	// Original is the section text; Prompt embeds it with the instructions.
	Original string
	Prompt   string

	// MaxAttempts bounds the number of calls, counting retries after a
	// result that was not longer than Original.
	MaxAttempts int

	// AcceptShorterOnFinalAttempt returns a not-longer result from the last
	// attempt as a success instead of ErrExpansionTooShort.
	AcceptShorterOnFinalAttempt bool
}

// NewExpansionRequest returns a request with the default attempt budget that
// accepts a not-longer result on the final attempt.
func NewExpansionRequest(original, prompt string) ExpansionRequest {
	return ExpansionRequest{
		Original:                    original,
		Prompt:                      prompt,
		MaxAttempts:                 DefaultExpansionAttempts,
		AcceptShorterOnFinalAttempt: true,
	}
}

// ExpansionResult is a normalized expansion with its length metrics.
type ExpansionResult struct {
	Content        string `json:"content"`
	Model          string `json:"model"`
	OriginalLength int    `json:"original_length"`
	ExpandedLength int    `json:"expanded_length"`
	Attempts       int    `json:"attempts"`
	Warning        string `json:"warning,omitempty"`
}

// KeyStatus reports the outcome of an API key check.
type KeyStatus struct {
	Valid      bool   `json:"valid"`
	Kind       Kind   `json:"kind,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// Key check messages shown to users.
const (
	MessageKeyValid       = "Chiave API verificata con successo"
	MessageKeyInvalid     = "La chiave API non è valida o è scaduta"
	MessageKeyAPIError    = "Errore nell'API: %s"
	MessageKeyUnreachable = "Errore di connessione durante la verifica: %s"
)

// Timeouts are per-call ceilings for each operation.
type Timeouts struct {
	Outline   time.Duration
	Chapter   time.Duration
	Expansion time.Duration
	Verify    time.Duration
}

// DefaultTimeouts returns 120s for outlines, 180s for chapters, 300s for
// expansions and 10s for key checks.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Outline:   120 * time.Second,
		Chapter:   180 * time.Second,
		Expansion: 300 * time.Second,
		Verify:    10 * time.Second,
	}
}

// WithDefaults fills zero durations from DefaultTimeouts.
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Outline <= 0 {
		t.Outline = d.Outline
	}
	if t.Chapter <= 0 {
		t.Chapter = d.Chapter
	}
	if t.Expansion <= 0 {
		t.Expansion = d.Expansion
	}
	if t.Verify <= 0 {
		t.Verify = d.Verify
	}
	return t
}
