package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CourseParams are the inputs a course is created from. They never change
// after creation.
type CourseParams struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Audience     string `json:"audience" validate:"required"`
	Complexity   string `json:"complexity" validate:"required"`
	Tone         string `json:"tone" validate:"required"`
	Requirements string `json:"requirements,omitempty"`
	WritingStyle string `json:"writing_style,omitempty"`
}

// Validate checks that every required parameter is present.
func (p CourseParams) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"audience", p.Audience},
		{"complexity", p.Complexity},
		{"tone", p.Tone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingCourseField, f.name)
		}
	}
	return nil
}

// Course is a course with its parameters and, once generated, its outline.
type Course struct {
	ID        uuid.UUID    `json:"id"`
	Params    CourseParams `json:"params"`
	Outline   *Outline     `json:"outline,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewCourse creates a Course with a fresh ID from validated parameters.
func NewCourse(params CourseParams) (*Course, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Course{
		ID:        uuid.New(),
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the course identity and parameters. The outline is
// validated separately when it is saved.
func (c *Course) Validate() error {
	if c.ID == uuid.Nil {
		return fmt.Errorf("%w: course ID is empty", ErrInvalidID)
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.Outline != nil {
		return c.Outline.Validate()
	}
	return nil
}

// ChapterIDs returns the outline's chapter IDs in order, or nil when the
// course has no outline yet.
func (c *Course) ChapterIDs() []string {
	if c.Outline == nil {
		return nil
	}
	ids := make([]string, len(c.Outline.Chapters))
	for i, ch := range c.Outline.Chapters {
		ids[i] = ch.ID
	}
	return ids
}

// CompletionPercent is the share of outline chapters that have stored
// content, rounded to the nearest integer. A course without chapters is 0%.
func CompletionPercent(outline *Outline, contents map[string]string) int {
	if outline == nil || len(outline.Chapters) == 0 {
		return 0
	}
	generated := 0
	for _, ch := range outline.Chapters {
		if _, ok := contents[ch.ID]; ok {
			generated++
		}
	}
	return int(math.Round(float64(generated) / float64(len(outline.Chapters)) * 100))
}

// CourseSummary is the list view of a course.
type CourseSummary struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Chapters          int       `json:"chapters"`
	GeneratedChapters int       `json:"generated_chapters"`
	CompletionPercent int       `json:"completion_percent"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
