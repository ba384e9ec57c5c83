package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ChapterContent is the Markdown body of one chapter. It is replaced
// wholesale by generation, manual edits and expansion.
type ChapterContent struct {
	CourseID  uuid.UUID `json:"course_id"`
	ChapterID string    `json:"chapter_id"`
	Content   string    `json:"content"`
	ModelUsed string    `json:"model_used,omitempty"`

	// OriginalLength is the length in characters of the content the chapter
	// had before its last expansion, or 0 if it was never expanded.
	OriginalLength int `json:"original_length,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewChapterContent builds a validated ChapterContent.
func NewChapterContent(courseID uuid.UUID, chapterID, content, model string) (*ChapterContent, error) {
	cc := &ChapterContent{
		CourseID:  courseID,
		ChapterID: chapterID,
		Content:   content,
		ModelUsed: model,
		UpdatedAt: time.Now().UTC(),
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	return cc, nil
}

// Validate checks that the content is keyed and non-empty.
func (c *ChapterContent) Validate() error {
	if c.CourseID == uuid.Nil {
		return fmt.Errorf("%w: course ID is empty", ErrInvalidID)
	}
	if strings.TrimSpace(c.ChapterID) == "" {
		return fmt.Errorf("%w: chapter ID is empty", ErrInvalidID)
	}
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Length is the content length in characters.
func (c *ChapterContent) Length() int {
	return utf8.RuneCountInString(c.Content)
}

// Expanded reports whether the content is the result of an expansion that
// made the chapter longer.
func (c *ChapterContent) Expanded() bool {
	return c.OriginalLength > 0 && c.Length() > c.OriginalLength
}
