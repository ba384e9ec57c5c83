package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnicolai/AI-Courses-Generator/internal/events"
	"github.com/google/uuid"
)

// ExpansionTaskCreator builds expansion tasks.
type ExpansionTaskCreator interface {
	CreateTask(payload ExpansionPayload) (*ExpansionTask, error)
}

// Submitter queues tasks for execution.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements events.EventHandler: it turns
// expansion_requested events into expansion tasks and submits them.
type TaskFactoryEventHandler struct {
	factory ExpansionTaskCreator
	runner  Submitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(factory ExpansionTaskCreator, runner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent creates and submits a task for an expansion_requested event.
// Other event types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeExpansionRequested {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload ExpansionPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.CourseID == uuid.Nil {
		payload.CourseID = event.CourseID
	}

	task, err := h.factory.CreateTask(payload)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"course_id", payload.CourseID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"course_id", payload.CourseID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", task.ID(),
		"course_id", payload.CourseID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
