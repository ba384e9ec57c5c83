package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	// TypeExpansionRequested asks for an accepted expansion job to be run in
	// the background.
	TypeExpansionRequested = "expansion_requested"

	// TypeSectionExpanded reports one section of a chapter expanded and
	// checkpointed.
	TypeSectionExpanded = "section_expanded"

	// TypeChapterExpanded reports a chapter joined and saved.
	TypeChapterExpanded = "chapter_expanded"

	// TypeJobFinished reports an expansion job reaching a terminal state.
	TypeJobFinished = "job_finished"
)

// Event is something that happened to a course, addressed to whichever
// handlers are registered for it.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// CourseID is the course the event concerns
	CourseID uuid.UUID `json:"course_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with the specified type, course and payload.
func NewEvent(eventType string, courseID uuid.UUID, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		CourseID:  courseID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SectionExpanded is the payload of TypeSectionExpanded.
type SectionExpanded struct {
	ChapterID     string `json:"chapter_id"`
	SectionIndex  int    `json:"section_index"`
	TotalSections int    `json:"total_sections"`
	Model         string `json:"model,omitempty"`
}

// ChapterExpanded is the payload of TypeChapterExpanded.
type ChapterExpanded struct {
	ChapterID      string  `json:"chapter_id"`
	OriginalLength int     `json:"original_length"`
	ExpandedLength int     `json:"expanded_length"`
	Ratio          float64 `json:"ratio"`
}

// JobFinished is the payload of TypeJobFinished.
type JobFinished struct {
	State            string `json:"state"`
	ExpandedChapters int    `json:"expanded_chapters"`
	TotalChapters    int    `json:"total_chapters"`
	Message          string `json:"message,omitempty"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
