package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
)

// Operation tells a Completer which flow a request belongs to.
type Operation string

// Operations.
const (
	OpOutline   Operation = "outline"
	OpChapter   Operation = "chapter"
	OpExpansion Operation = "expansion"
)

// Completion is one prompt to send to a model.
type Completion struct {
	Op      Operation
	System  string
	User    string
	Timeout time.Duration
}

// Reply is a model's raw answer.
type Reply struct {
	Text    string
	Model   string
	Warning string
}

// Completer sends a single completion to a provider.
//
// For OpOutline and OpChapter the Completer owns transport retries and model
// fallback. For OpExpansion it must make exactly one call: the Pipeline runs
// its own attempt loop around it.
type Completer interface {
	Complete(ctx context.Context, c Completion) (*Reply, error)
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Provider  Provider
	Dialect   markdown.Dialect
	Completer Completer
	Timeouts  Timeouts

	// ExpansionBackoff spaces expansion attempts. MaxAttempts is ignored;
	// the request decides how many attempts to make.
	ExpansionBackoff retry.Policy

	Logger *slog.Logger
}

// Pipeline implements the outline, chapter and expansion operations of
// Client on top of a provider's Completer. Provider packages embed it and
// add VerifyAPIKey.
type Pipeline struct {
	provider  Provider
	dialect   markdown.Dialect
	completer Completer
	timeouts  Timeouts
	backoff   retry.Policy
	logger    *slog.Logger
}

// NewPipeline validates cfg and returns a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("%w: completer cannot be nil", ErrInvalidConfig)
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("%w: provider cannot be empty", ErrInvalidConfig)
	}
	if cfg.Dialect == "" {
		cfg.Dialect = markdown.DialectGeneric
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		provider:  cfg.Provider,
		dialect:   cfg.Dialect,
		completer: cfg.Completer,
		timeouts:  cfg.Timeouts.WithDefaults(),
		backoff:   cfg.ExpansionBackoff,
		logger:    logger.With("component", "generation", "provider", string(cfg.Provider)),
	}, nil
}

// Provider names the backend.
func (p *Pipeline) Provider() Provider {
	return p.provider
}

// Timeouts returns the per-operation ceilings.
func (p *Pipeline) Timeouts() Timeouts {
	return p.timeouts
}

// GenerateOutline asks for an outline sized by params.Complexity and parses
// the JSON reply.
func (p *Pipeline) GenerateOutline(ctx context.Context, params domain.CourseParams) (*OutlineResult, error) {
	prompt, err := BuildOutlinePrompt(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	p.logger.InfoContext(ctx, "Generating course outline",
		"title", params.Title,
		"complexity", params.Complexity)

	reply, err := p.completer.Complete(ctx, Completion{
		Op:      OpOutline,
		System:  SystemOutline,
		User:    prompt,
		Timeout: p.timeouts.Outline,
	})
	if err != nil {
		return nil, err
	}

	outline, err := ParseOutline(reply.Text)
	if err != nil {
		p.logger.ErrorContext(ctx, "Outline reply could not be parsed",
			"error", err,
			"model", reply.Model,
			"reply_length", len(reply.Text))
		return nil, err
	}

	p.logger.InfoContext(ctx, "Outline generated",
		"model", reply.Model,
		"chapters", len(outline.Chapters),
		"subtopics", outline.SubtopicCount())

	return &OutlineResult{Outline: outline, Model: reply.Model, Warning: reply.Warning}, nil
}

// GenerateChapterContent writes one chapter and normalizes the Markdown.
func (p *Pipeline) GenerateChapterContent(
	ctx context.Context,
	params domain.CourseParams,
	outline *domain.Outline,
	chapterID string,
	prior []PriorChapter,
) (*ChapterResult, error) {
	if outline == nil {
		return nil, fmt.Errorf("%w: %s (course has no outline)", ErrChapterNotFound, chapterID)
	}
	chapter, _, ok := outline.Chapter(chapterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, chapterID)
	}

	prompt, err := BuildChapterPrompt(params, chapter, prior)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	p.logger.InfoContext(ctx, "Generating chapter content",
		"chapter_id", chapterID,
		"prior_chapters", len(prior))

	reply, err := p.completer.Complete(ctx, Completion{
		Op:      OpChapter,
		System:  SystemContent,
		User:    prompt,
		Timeout: p.timeouts.Chapter,
	})
	if err != nil {
		return nil, err
	}

	content := markdown.Normalize(reply.Text, p.dialect)
	if utf8.RuneCountInString(content) == 0 {
		return nil, fmt.Errorf("%w: empty chapter content", ErrInvalidResponse)
	}

	return &ChapterResult{Content: content, Model: reply.Model, Warning: reply.Warning}, nil
}

// GenerateExpandedContent runs the expansion attempt loop. A reply that is
// not longer than the original is retried with a strengthened prompt; on the
// final attempt it is accepted when req.AcceptShorterOnFinalAttempt is set.
// Authentication failures end the loop at once.
func (p *Pipeline) GenerateExpandedContent(ctx context.Context, req ExpansionRequest) (*ExpansionResult, error) {
	attempts := req.MaxAttempts
	if attempts < 1 {
		attempts = DefaultExpansionAttempts
	}
	policy := p.backoff
	policy.MaxAttempts = attempts
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.WarnContext(ctx, "Expansion attempt failed, retrying",
			"course_id", req.CourseID,
			"chapter_id", req.ChapterID,
			"section", req.SectionIndex,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err)
	}

	originalLength := utf8.RuneCountInString(req.Original)
	prompt := req.Prompt
	attempt := 0

	return retry.DoValue(ctx, policy, func(ctx context.Context) (*ExpansionResult, error) {
		attempt++
		final := attempt >= attempts

		reply, err := p.completer.Complete(ctx, Completion{
			Op:      OpExpansion,
			User:    prompt,
			Timeout: p.timeouts.Expansion,
		})
		if err != nil {
			if final || errors.Is(err, ErrAuthentication) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, retry.MarkRetryable(err)
		}

		replyLength := utf8.RuneCountInString(reply.Text)
		shorter := replyLength <= originalLength
		if shorter && !final {
			prompt = StrengthenPrompt(req.Prompt)
			return nil, retry.MarkRetryable(fmt.Errorf("%w: %d <= %d characters",
				ErrExpansionTooShort, replyLength, originalLength))
		}
		if shorter && !req.AcceptShorterOnFinalAttempt {
			return nil, fmt.Errorf("%w: %d <= %d characters after %d attempts",
				ErrExpansionTooShort, replyLength, originalLength, attempt)
		}

		content := markdown.Normalize(reply.Text, p.dialect)
		result := &ExpansionResult{
			Content:        content,
			Model:          reply.Model,
			OriginalLength: originalLength,
			ExpandedLength: utf8.RuneCountInString(content),
			Attempts:       attempt,
			Warning:        reply.Warning,
		}
		if shorter {
			p.logger.WarnContext(ctx, "Accepting expansion that is not longer than the original",
				"course_id", req.CourseID,
				"chapter_id", req.ChapterID,
				"section", req.SectionIndex,
				"original_length", originalLength,
				"expanded_length", replyLength)
		}
		return result, nil
	})
}
