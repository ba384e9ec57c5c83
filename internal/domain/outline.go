package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outline is the chapter skeleton of a course. Its JSON keys follow the shape
// that generation prompts ask the model to return.
type Outline struct {
	Title          string    `json:"titolo"`
	Description    string    `json:"descrizione"`
	EstimatedHours string    `json:"durata_stimata,omitempty"`
	Chapters       []Chapter `json:"capitoli"`
}

// Chapter is one outline entry. ID is unique within the outline.
type Chapter struct {
	ID          string     `json:"id"`
	Title       string     `json:"titolo"`
	Description string     `json:"descrizione,omitempty"`
	Order       int        `json:"ordine,omitempty"`
	Subtopics   []Subtopic `json:"sottoargomenti"`
}

// Subtopic carries either a list of key points or a free-text description.
type Subtopic struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"titolo"`
	Order       int      `json:"ordine,omitempty"`
	KeyPoints   []string `json:"punti_chiave,omitempty"`
	Description string   `json:"descrizione,omitempty"`
}

// UnmarshalJSON accepts "sottocapitoli" as an alias for "sottoargomenti",
// which models and hand-edited outlines both use.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	type plain Chapter
	var aux struct {
		plain
		Subchapters []Subtopic `json:"sottocapitoli"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Chapter(aux.plain)
	if len(c.Subtopics) == 0 && len(aux.Subchapters) > 0 {
		c.Subtopics = aux.Subchapters
	}
	return nil
}

// Normalize fills in missing chapter IDs, order numbers and subtopic IDs.
// Existing values are kept.
func (o *Outline) Normalize() {
	for i := range o.Chapters {
		ch := &o.Chapters[i]
		ch.ID = strings.TrimSpace(ch.ID)
		if ch.ID == "" {
			ch.ID = fmt.Sprintf("cap%d", i+1)
		}
		ch.Order = i + 1
		for j := range ch.Subtopics {
			st := &ch.Subtopics[j]
			if st.ID == "" {
				st.ID = fmt.Sprintf("%s-sub-%d", ch.ID, j+1)
			}
			st.Order = j + 1
		}
	}
}

// Validate checks that the outline has chapters, each with a title and a
// unique ID.
func (o *Outline) Validate() error {
	if len(o.Chapters) == 0 {
		return ErrEmptyOutline
	}
	seen := make(map[string]struct{}, len(o.Chapters))
	for i, ch := range o.Chapters {
		if strings.TrimSpace(ch.ID) == "" {
			return fmt.Errorf("%w: chapter %d has no ID", ErrValidation, i+1)
		}
		if strings.TrimSpace(ch.Title) == "" {
			return fmt.Errorf("%w: chapter %s has no title", ErrValidation, ch.ID)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateChapterID, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}

// Chapter returns the chapter with the given ID and its position.
func (o *Outline) Chapter(id string) (*Chapter, int, bool) {
	for i := range o.Chapters {
		if o.Chapters[i].ID == id {
			return &o.Chapters[i], i, true
		}
	}
	return nil, -1, false
}

// SubtopicCount is the total number of subtopics across all chapters.
func (o *Outline) SubtopicCount() int {
	n := 0
	for _, ch := range o.Chapters {
		n += len(ch.Subtopics)
	}
	return n
}
