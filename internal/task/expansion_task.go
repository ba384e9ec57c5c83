package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilExpander   = errors.New("expander cannot be nil")
	ErrEmptyCourseID = errors.New("course ID cannot be empty")
)

// Expander drives expansion jobs.
type Expander interface {
	// RunJob drives a job already created by Start. It does nothing once
	// jobID is no longer the course's current job.
	RunJob(ctx context.Context, courseID, jobID uuid.UUID) error

	// Expand creates a job and runs it.
	Expand(ctx context.Context, courseID uuid.UUID, opts expansion.Options) (*expansion.Summary, error)

	// Status returns the course's current job.
	Status(ctx context.Context, courseID uuid.UUID) (*expansion.Summary, error)
}

// ExpansionPayload is the persisted data of an expansion task.
type ExpansionPayload struct {
	CourseID  uuid.UUID         `json:"course_id"`
	JobID     uuid.UUID         `json:"job_id,omitempty"`
	StartedAt time.Time         `json:"started_at,omitempty"`
	Options   expansion.Options `json:"options"`
}

// ExpansionTask runs an expansion job in the background.
type ExpansionTask struct {
	id       uuid.UUID
	payload  ExpansionPayload
	raw      []byte
	status   TaskStatus
	expander Expander
	logger   *slog.Logger

	// restored tasks were rebuilt after a restart; their job state is gone
	// and must be recreated.
	restored bool
}

var _ Task = (*ExpansionTask)(nil)

// NewExpansionTask creates a task for a job that Start has already created.
func NewExpansionTask(payload ExpansionPayload, expander Expander, logger *slog.Logger) (*ExpansionTask, error) {
	return newExpansionTask(uuid.New(), payload, expander, logger)
}

func newExpansionTask(id uuid.UUID, payload ExpansionPayload, expander Expander, logger *slog.Logger) (*ExpansionTask, error) {
	if payload.CourseID == uuid.Nil {
		return nil, ErrEmptyCourseID
	}
	if expander == nil {
		return nil, ErrNilExpander
	}
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expansion payload: %w", err)
	}
	return &ExpansionTask{
		id:       id,
		payload:  payload,
		raw:      raw,
		status:   TaskStatusPending,
		expander: expander,
		logger:   logger.With("task_id", id, "course_id", payload.CourseID, "job_id", payload.JobID),
	}, nil
}

// ID implements Task.
func (t *ExpansionTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *ExpansionTask) Type() string { return TaskTypeExpansion }

// Payload implements Task.
func (t *ExpansionTask) Payload() []byte { return t.raw }

// Status implements Task.
func (t *ExpansionTask) Status() TaskStatus { return t.status }

// CourseID returns the course being expanded.
func (t *ExpansionTask) CourseID() uuid.UUID { return t.payload.CourseID }

// Execute implements Task. A restored task continues from the resume point
// of the job recovered for its course, or starts over when there is none.
// Either way, chapters its job already expanded are not expanded again.
func (t *ExpansionTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	err := t.execute(ctx)
	if err != nil {
		t.status = TaskStatusFailed
		return err
	}
	t.status = TaskStatusCompleted
	return nil
}

func (t *ExpansionTask) execute(ctx context.Context) error {
	courseID := t.payload.CourseID
	if !t.restored {
		return t.expander.RunJob(ctx, courseID, t.payload.JobID)
	}

	current, err := t.expander.Status(ctx, courseID)
	if err != nil {
		return err
	}
	if current.State.Active() {
		t.logger.Info("expansion already running, nothing to resume")
		return nil
	}

	opts := t.payload.Options
	opts.ResumeChapter, opts.ResumeSection = "", nil
	since := t.payload.StartedAt
	opts.SkipExpandedSince = &since
	if rp := current.ResumePoint; rp != nil {
		section := rp.Section
		opts.ResumeChapter = rp.ChapterID
		opts.ResumeSection = &section
	}
	t.logger.Info("resuming interrupted expansion",
		"resume_chapter", opts.ResumeChapter)

	_, err = t.expander.Expand(ctx, courseID, opts)
	return err
}

// ExpansionTaskFactory creates ExpansionTask instances
type ExpansionTaskFactory struct {
	expander Expander
	logger   *slog.Logger
}

// NewExpansionTaskFactory creates a new factory for ExpansionTasks
func NewExpansionTaskFactory(expander Expander, logger *slog.Logger) *ExpansionTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpansionTaskFactory{
		expander: expander,
		logger:   logger.With("component", "expansion_task_factory"),
	}
}

// CreateTask creates a task for a job that Start has already created.
func (f *ExpansionTaskFactory) CreateTask(payload ExpansionPayload) (*ExpansionTask, error) {
	return NewExpansionTask(payload, f.expander, f.logger)
}

// Restore rebuilds a persisted task. It is a Factory.
func (f *ExpansionTaskFactory) Restore(id uuid.UUID, payload []byte) (Task, error) {
	var p ExpansionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode expansion payload: %w", err)
	}
	t, err := newExpansionTask(id, p, f.expander, f.logger)
	if err != nil {
		return nil, err
	}
	t.restored = true
	return t, nil
}
