package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

// ChapterGeneration is a freshly generated and saved chapter.
type ChapterGeneration struct {
	Content *domain.ChapterContent `json:"content"`
	Warning string                 `json:"warning,omitempty"`
}

// BatchGeneration reports a generate-all-missing run. Generation stops at the
// first failing chapter.
type BatchGeneration struct {
	Generated []string `json:"generated"`
	Skipped   []string `json:"skipped"`
	Failed    string   `json:"failed,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// GenerationService produces outlines and chapters with the configured
// provider and stores them.
type GenerationService struct {
	courses store.CourseStore
	client  generation.Client
	jobs    JobTracker
	logger  *slog.Logger
}

// NewGenerationService creates a GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	courses store.CourseStore,
	client generation.Client,
	jobs JobTracker,
	logger *slog.Logger,
) (*GenerationService, error) {
	if courses == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "courses cannot be nil"}
	}
	if client == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "client cannot be nil"}
	}
	if jobs == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "jobs cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		courses: courses,
		client:  client,
		jobs:    jobs,
		logger:  logger.With("component", "generation_service"),
	}, nil
}

// GenerateOutline asks the provider for an outline and replaces the
// course's outline with it.
func (s *GenerationService) GenerateOutline(ctx context.Context, id uuid.UUID) (*generation.OutlineResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", id)

	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureIdle(ctx, s.jobs, id); err != nil {
		return nil, err
	}

	result, err := s.client.GenerateOutline(ctx, course.Params)
	if err != nil {
		log.Error("outline generation failed",
			"provider", s.client.Provider(),
			"error", redact.Error(err))
		return nil, NewServiceError("generate_outline", "provider call failed", err)
	}
	if result.Outline == nil {
		return nil, NewServiceError("generate_outline", "provider returned no outline", generation.ErrInvalidResponse)
	}
	result.Outline.Normalize()
	if err := result.Outline.Validate(); err != nil {
		return nil, NewServiceError("generate_outline", "provider returned an unusable outline",
			fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err))
	}

	if err := s.courses.SaveOutline(ctx, id, result.Outline); err != nil {
		return nil, NewServiceError("generate_outline", "failed to save outline", err)
	}

	log.Info("outline generated",
		"model", result.Model,
		"chapters", len(result.Outline.Chapters),
		"subtopics", result.Outline.SubtopicCount())
	return result, nil
}

// GenerateChapter writes one chapter, passing summaries of the earlier
// chapters as context, and saves it.
func (s *GenerationService) GenerateChapter(ctx context.Context, id uuid.UUID, chapterID string) (*ChapterGeneration, error) {
	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Outline == nil {
		return nil, ErrNoOutline
	}
	if _, _, ok := course.Outline.Chapter(chapterID); !ok {
		return nil, fmt.Errorf("%w: %s", generation.ErrChapterNotFound, chapterID)
	}
	if err := ensureIdle(ctx, s.jobs, id); err != nil {
		return nil, err
	}

	contents, err := s.courses.GetChapterContents(ctx, id)
	if err != nil {
		return nil, NewServiceError("generate_chapter", "failed to load chapter contents", err)
	}
	return s.generateChapter(ctx, course, contents, chapterID)
}

// GenerateMissingChapters generates, in outline order, every chapter that
// has no content yet. Each new chapter is context for the following ones.
// The returned report is non-nil even when err is not.
func (s *GenerationService) GenerateMissingChapters(ctx context.Context, id uuid.UUID) (*BatchGeneration, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", id)

	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Outline == nil {
		return nil, ErrNoOutline
	}
	if err := ensureIdle(ctx, s.jobs, id); err != nil {
		return nil, err
	}

	contents, err := s.courses.GetChapterContents(ctx, id)
	if err != nil {
		return nil, NewServiceError("generate_chapters", "failed to load chapter contents", err)
	}

	report := &BatchGeneration{Generated: []string{}, Skipped: []string{}}
	for _, ch := range course.Outline.Chapters {
		if _, ok := contents[ch.ID]; ok {
			report.Skipped = append(report.Skipped, ch.ID)
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Failed = ch.ID
			report.Error = err.Error()
			return report, err
		}

		gen, err := s.generateChapter(ctx, course, contents, ch.ID)
		if err != nil {
			report.Failed = ch.ID
			report.Error = redact.Error(err)
			log.Warn("stopping batch generation",
				"chapter_id", ch.ID,
				"generated", len(report.Generated),
				"error", redact.Error(err))
			return report, err
		}
		contents[ch.ID] = gen.Content.Content
		report.Generated = append(report.Generated, ch.ID)
	}

	log.Info("missing chapters generated",
		"generated", len(report.Generated),
		"skipped", len(report.Skipped))
	return report, nil
}

func (s *GenerationService) generateChapter(
	ctx context.Context,
	course *domain.Course,
	contents map[string]string,
	chapterID string,
) (*ChapterGeneration, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", course.ID, "chapter_id", chapterID)

	sources := make([]generation.PriorChapterSource, len(course.Outline.Chapters))
	for i, ch := range course.Outline.Chapters {
		sources[i] = generation.PriorChapterSource{ID: ch.ID, Title: ch.Title, Content: contents[ch.ID]}
	}
	prior := generation.PriorChapters(sources, chapterID)

	result, err := s.client.GenerateChapterContent(ctx, course.Params, course.Outline, chapterID, prior)
	if err != nil {
		log.Error("chapter generation failed",
			"provider", s.client.Provider(),
			"error", redact.Error(err))
		return nil, NewServiceError("generate_chapter", "provider call failed", err)
	}

	model := result.Model
	if model == "" {
		model = string(s.client.Provider())
	}
	cc, err := domain.NewChapterContent(course.ID, chapterID, result.Content, model)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyContent) {
			err = fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
		}
		return nil, NewServiceError("generate_chapter", "provider returned unusable content", err)
	}
	if err := s.courses.SaveChapterContent(ctx, cc); err != nil {
		return nil, NewServiceError("generate_chapter", "failed to save chapter content", err)
	}

	log.Info("chapter generated", "model", model, "length", cc.Length(), "prior_chapters", len(prior))
	return &ChapterGeneration{Content: cc, Warning: result.Warning}, nil
}

// VerifyAPIKey checks the configured provider's credentials.
func (s *GenerationService) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	status, err := s.client.VerifyAPIKey(ctx)
	if err != nil {
		return nil, NewServiceError("verify_api_key", "key check failed", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("api key checked",
		"provider", s.client.Provider(),
		"valid", status.Valid)
	return status, nil
}
