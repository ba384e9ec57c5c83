package service

import (
	"context"
	"log/slog"

	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/task"
	"github.com/google/uuid"
)

// ExpansionController starts and steers expansion jobs.
type ExpansionController interface {
	Start(ctx context.Context, courseID uuid.UUID, opts expansion.Options) (*expansion.Summary, error)
	Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Pause(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Resume(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Cancel(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
	Abort(ctx context.Context, courseID uuid.UUID, cause error)
}

// ExpansionService accepts expansion jobs and hands them to the background
// runner through an expansion_requested event.
type ExpansionService struct {
	controller ExpansionController
	emitter    events.EventEmitter
	logger     *slog.Logger
}

// NewExpansionService creates an ExpansionService.
// It returns an error if any of the required dependencies are nil.
func NewExpansionService(
	controller ExpansionController,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*ExpansionService, error) {
	if controller == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "controller cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpansionService{
		controller: controller,
		emitter:    emitter,
		logger:     logger.With("component", "expansion_service"),
	}, nil
}

// StartExpansion validates and records a new job, then queues it. The
// returned summary is the job's initial in_corso state. A job that cannot be
// queued is marked fallito.
func (s *ExpansionService) StartExpansion(
	ctx context.Context,
	courseID uuid.UUID,
	opts expansion.Options,
) (*expansion.Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("course_id", courseID)

	summary, err := s.controller.Start(ctx, courseID, opts)
	if err != nil {
		log.Info("expansion rejected", "error", err)
		return nil, err
	}
	if summary.Options != nil {
		opts = *summary.Options
	}

	event, err := events.NewEvent(events.TypeExpansionRequested, courseID, task.ExpansionPayload{
		CourseID:  courseID,
		JobID:     summary.JobID,
		StartedAt: summary.StartedAt,
		Options:   opts,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Error("failed to queue expansion job",
			"job_id", summary.JobID,
			"error", redact.Error(err))
		s.controller.Abort(ctx, courseID, err)
		return nil, NewServiceError("start_expansion", "failed to queue expansion job", err)
	}

	log.Info("expansion job queued", "job_id", summary.JobID, "event_id", event.ID)
	return summary, nil
}

// Status returns the course's current job.
func (s *ExpansionService) Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return s.controller.Status(ctx, courseID)
}

// Pause pauses the course's running job.
func (s *ExpansionService) Pause(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return s.controller.Pause(ctx, courseID)
}

// Resume resumes the course's paused job.
func (s *ExpansionService) Resume(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return s.controller.Resume(ctx, courseID)
}

// Cancel cancels the course's active job.
func (s *ExpansionService) Cancel(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error) {
	return s.controller.Cancel(ctx, courseID)
}
