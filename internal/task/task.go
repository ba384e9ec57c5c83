package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeExpansion expands the chapters of a course
	TaskTypeExpansion = "course_expansion"
)

var (
	// ErrQueueFull is returned by Submit when the in-memory queue has no room.
	ErrQueueFull = errors.New("task queue is full, try again later")

	// ErrQueueClosed is returned by Submit after the runner has stopped.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrUnknownTaskType is returned when no Factory is registered for a
	// stored task's type.
	ErrUnknownTaskType = errors.New("no factory registered for task type")
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic. ctx is canceled when the runner stops.
	Execute(ctx context.Context) error
}

// Record is a task as persisted by a TaskStore. It carries no behavior; a
// Factory turns it back into an executable Task.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Factory rebuilds an executable task from its persisted id and payload.
type Factory func(id uuid.UUID, payload []byte) (Task, error)

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a task with its current status
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task. Updating an unknown
	// task is a no-op.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status, oldest first
	GetPendingTasks(ctx context.Context) ([]*Record, error)

	// GetProcessingTasks retrieves all tasks with "processing" status,
	// oldest first. These were interrupted by a shutdown or crash.
	GetProcessingTasks(ctx context.Context) ([]*Record, error)
}
