package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() CourseParams {
	return CourseParams{
		Title:       "Prompt engineering",
		Description: "Tecniche di prompting",
		Audience:    "Sviluppatori",
		Complexity:  "intermedio",
		Tone:        "professionale",
	}
}

func TestNewCourse(t *testing.T) {
	t.Parallel()

	course, err := NewCourse(validParams())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, course.ID)
	assert.False(t, course.CreatedAt.IsZero())
	assert.Nil(t, course.Outline)

	params := validParams()
	params.Tone = "  "
	_, err = NewCourse(params)
	assert.True(t, errors.Is(err, ErrMissingCourseField))
	assert.Contains(t, err.Error(), "tone")
}

func TestCompletionPercent(t *testing.T) {
	t.Parallel()

	outline := &Outline{Chapters: []Chapter{{ID: "cap1"}, {ID: "cap2"}, {ID: "cap3"}}}

	tests := []struct {
		name     string
		outline  *Outline
		contents map[string]string
		want     int
	}{
		{"no outline", nil, nil, 0},
		{"empty outline", &Outline{}, map[string]string{"cap1": "x"}, 0},
		{"none generated", outline, map[string]string{}, 0},
		{"one of three", outline, map[string]string{"cap1": "x"}, 33},
		{"two of three", outline, map[string]string{"cap1": "x", "cap3": "y"}, 67},
		{"all", outline, map[string]string{"cap1": "x", "cap2": "y", "cap3": "z"}, 100},
		{"unknown ids ignored", outline, map[string]string{"cap9": "x"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionPercent(tt.outline, tt.contents))
		})
	}
}

func TestOutlineNormalizeAndValidate(t *testing.T) {
	t.Parallel()

	raw := `{
		"titolo": "Corso",
		"descrizione": "Descrizione",
		"capitoli": [
			{"id": "cap1", "titolo": "Uno", "sottoargomenti": [{"titolo": "1.1", "punti_chiave": ["a"]}]},
			{"titolo": "Due", "sottocapitoli": [{"titolo": "2.1", "descrizione": "testo"}]}
		]
	}`

	var outline Outline
	require.NoError(t, json.Unmarshal([]byte(raw), &outline))
	outline.Normalize()

	require.NoError(t, outline.Validate())
	assert.Equal(t, "cap2", outline.Chapters[1].ID)
	assert.Equal(t, 2, outline.Chapters[1].Order)
	require.Len(t, outline.Chapters[1].Subtopics, 1, "sottocapitoli must be accepted as subtopics")
	assert.Equal(t, "cap2-sub-1", outline.Chapters[1].Subtopics[0].ID)
	assert.Equal(t, "cap1-sub-1", outline.Chapters[0].Subtopics[0].ID)
	assert.Equal(t, 2, outline.SubtopicCount())

	ch, idx, ok := outline.Chapter("cap2")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Due", ch.Title)

	_, _, ok = outline.Chapter("missing")
	assert.False(t, ok)
}

func TestOutlineValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outline Outline
		want    error
	}{
		{"empty", Outline{}, ErrEmptyOutline},
		{"missing title", Outline{Chapters: []Chapter{{ID: "cap1"}}}, ErrValidation},
		{"duplicate id", Outline{Chapters: []Chapter{{ID: "a", Title: "x"}, {ID: "a", Title: "y"}}}, ErrDuplicateChapterID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.outline.Validate(), tt.want)
		})
	}
}

func TestChapterContent(t *testing.T) {
	t.Parallel()

	_, err := NewChapterContent(uuid.New(), "cap1", " \n", "mock")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = NewChapterContent(uuid.Nil, "cap1", "testo", "mock")
	assert.ErrorIs(t, err, ErrInvalidID)

	cc, err := NewChapterContent(uuid.New(), "cap1", "città", "mock")
	require.NoError(t, err)
	assert.Equal(t, 5, cc.Length())
	assert.False(t, cc.Expanded())

	cc.OriginalLength = 3
	assert.True(t, cc.Expanded())
}
