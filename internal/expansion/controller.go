package expansion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
)

// DefaultPollInterval is how often a paused job re-checks its state.
const DefaultPollInterval = time.Second

// Config configures a Controller.
type Config struct {
	// PollInterval is the sleep between state checks while a job is paused
	// and the granularity of inter-chapter and inter-section delays.
	PollInterval time.Duration

	// MaxAttempts and AcceptShorterOnFinalAttempt are passed on every
	// generation.ExpansionRequest.
	MaxAttempts                 int
	AcceptShorterOnFinalAttempt bool

	Logger *slog.Logger
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:                DefaultPollInterval,
		MaxAttempts:                 generation.DefaultExpansionAttempts,
		AcceptShorterOnFinalAttempt: true,
	}
}

// IncompleteError reports how far a course is from being fully generated.
type IncompleteError struct {
	Percent int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: completion is %d%%", ErrIncompleteCourse, e.Percent)
}

// Unwrap lets errors.Is match ErrIncompleteCourse.
func (e *IncompleteError) Unwrap() error {
	return ErrIncompleteCourse
}

// Controller starts, drives and steers expansion jobs.
type Controller struct {
	courses     store.CourseStore
	checkpoints store.CheckpointStore
	client      generation.Client
	jobs        JobStore
	emitter     events.EventEmitter
	cfg         Config
	logger      *slog.Logger
}

// NewController creates a Controller. emitter may be nil.
func NewController(
	courses store.CourseStore,
	checkpoints store.CheckpointStore,
	client generation.Client,
	jobs JobStore,
	emitter events.EventEmitter,
	cfg Config,
) *Controller {
	if courses == nil || checkpoints == nil || client == nil || jobs == nil {
		panic("expansion: nil dependency")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = generation.DefaultExpansionAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		courses:     courses,
		checkpoints: checkpoints,
		client:      client,
		jobs:        jobs,
		emitter:     emitter,
		cfg:         cfg,
		logger:      log.With(slog.String("component", "expansion")),
	}
}

// Start validates a new job for the course and records it as in_corso.
// It does not expand anything; call Run to drive the job.
//
// Start fails with ErrInvalidOptions, store.ErrCourseNotFound, ErrJobActive,
// an *IncompleteError, ErrNoContent, or generation.ErrChapterNotFound when
// SingleChapter or ResumeChapter is not a chapter of the job.
func (c *Controller) Start(ctx context.Context, courseID uuid.UUID, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	course, err := c.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.jobs.State(courseID).Active() {
		return nil, ErrJobActive
	}

	contents, err := c.courses.GetChapterContents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if pct := domain.CompletionPercent(course.Outline, contents); pct < 100 {
		return nil, &IncompleteError{Percent: pct}
	}
	if len(contents) == 0 {
		return nil, ErrNoContent
	}

	targets, err := jobChapters(course.Outline, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := &Summary{
		JobID:         uuid.New(),
		CourseID:      courseID,
		State:         StateRunning,
		Success:       true,
		TotalChapters: len(targets),
		Chapters:      make([]ChapterDetail, len(targets)),
		Message:       msgStarted,
		Options:       &opts,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	for i, ch := range targets {
		summary.Chapters[i] = ChapterDetail{ID: ch.ID, Title: ch.Title, Message: msgWaiting}
	}

	if err := c.jobs.Begin(summary); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "expansion job started",
		slog.String("course_id", courseID.String()),
		slog.String("job_id", summary.JobID.String()),
		slog.Int("chapters", len(targets)),
		slog.Bool("resume", opts.resuming()))
	return summary.Clone(), nil
}

// Expand starts a job and runs it to the end, returning the final summary.
func (c *Controller) Expand(ctx context.Context, courseID uuid.UUID, opts Options) (*Summary, error) {
	started, err := c.Start(ctx, courseID, opts)
	if err != nil {
		return nil, err
	}
	runErr := c.RunJob(ctx, courseID, started.JobID)
	summary, ok := c.jobs.Get(courseID)
	if !ok {
		return nil, ErrNoJob
	}
	return summary, runErr
}

// Status returns the course's current job. A course that never had one is
// reported as non_iniziato.
func (c *Controller) Status(ctx context.Context, courseID uuid.UUID) (*Summary, error) {
	if s, ok := c.jobs.Get(courseID); ok {
		return s, nil
	}
	course, err := c.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		CourseID:  courseID,
		State:     StateNotStarted,
		Success:   true,
		Chapters:  []ChapterDetail{},
		UpdatedAt: time.Now().UTC(),
	}
	if course.Outline != nil {
		s.TotalChapters = len(course.Outline.Chapters)
	}
	return s, nil
}

// Pause moves an in_corso job to in_pausa. The running loop stops at its
// next check point and waits.
func (c *Controller) Pause(ctx context.Context, courseID uuid.UUID) (*Summary, error) {
	return c.transition(ctx, courseID, StatePaused, msgPaused, StateRunning)
}

// Resume moves an in_pausa job back to in_corso.
func (c *Controller) Resume(ctx context.Context, courseID uuid.UUID) (*Summary, error) {
	return c.transition(ctx, courseID, StateRunning, msgResumed, StatePaused)
}

// Cancel moves an active job to annullato. Work already checkpointed is
// kept; the chapter being expanded keeps its original content.
func (c *Controller) Cancel(ctx context.Context, courseID uuid.UUID) (*Summary, error) {
	return c.transition(ctx, courseID, StateCanceled, msgCanceled, StateRunning, StatePaused)
}

func (c *Controller) transition(ctx context.Context, courseID uuid.UUID, to State, message string, from ...State) (*Summary, error) {
	s, err := c.jobs.Update(courseID, func(s *Summary) error {
		for _, f := range from {
			if s.State == f {
				s.State = to
				s.Message = message
				return nil
			}
		}
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, s.State, to)
	})
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "expansion job state changed",
		slog.String("course_id", courseID.String()),
		slog.String("state", string(to)))
	return s, nil
}

// Abort marks an active job that could not be run as fallito.
func (c *Controller) Abort(ctx context.Context, courseID uuid.UUID, cause error) {
	_, err := c.jobs.Update(courseID, func(s *Summary) error {
		if !s.State.Active() {
			return ErrInvalidTransition
		}
		s.State = StateFailed
		s.Success = false
		s.Message = fmt.Sprintf(msgAborted, redact.Error(cause))
		return nil
	})
	if err != nil {
		return
	}
	c.logger.ErrorContext(ctx, "expansion job aborted",
		slog.String("course_id", courseID.String()),
		slog.String("error", redact.Error(cause)))
}

// Forget drops the course's job, e.g. when the course is deleted. A running
// loop observes the missing job and stops.
func (c *Controller) Forget(courseID uuid.UUID) {
	c.jobs.Delete(courseID)
}

// jobChapters returns the outline chapters a job covers.
func jobChapters(outline *domain.Outline, opts Options) ([]domain.Chapter, error) {
	if outline == nil {
		return nil, ErrNoContent
	}
	targets := outline.Chapters
	if opts.SingleChapter != "" {
		ch, _, ok := outline.Chapter(opts.SingleChapter)
		if !ok {
			return nil, fmt.Errorf("%w: %s", generation.ErrChapterNotFound, opts.SingleChapter)
		}
		targets = []domain.Chapter{*ch}
	}
	if opts.ResumeChapter != "" {
		found := false
		for _, ch := range targets {
			if ch.ID == opts.ResumeChapter {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", generation.ErrChapterNotFound, opts.ResumeChapter)
		}
	}
	return targets, nil
}

// emit publishes an event, logging failures.
func (c *Controller) emit(ctx context.Context, eventType string, courseID uuid.UUID, payload any) {
	if c.emitter == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	event, err := events.NewEvent(eventType, courseID, payload)
	if err == nil {
		err = c.emitter.EmitEvent(ctx, event)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.WarnContext(ctx, "failed to emit expansion event",
			slog.String("event_type", eventType),
			slog.String("course_id", courseID.String()),
			slog.String("error", err.Error()))
	}
}
