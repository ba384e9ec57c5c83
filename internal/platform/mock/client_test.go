package mock

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutline(t *testing.T) {
	t.Parallel()

	c := New(nil)
	res, err := c.GenerateOutline(context.Background(), domain.CourseParams{Title: "Go", Description: "Corso di Go"})
	require.NoError(t, err)

	o := res.Outline
	require.NoError(t, o.Validate())
	assert.Equal(t, "Go", o.Title)
	assert.Equal(t, "10 ore", o.EstimatedHours)
	assert.Equal(t, []string{"cap1", "cap2", "cap3"}, (&domain.Course{Outline: o}).ChapterIDs())
	assert.Equal(t, 6, o.SubtopicCount())
	assert.Equal(t, ModelName, res.Model)
}

func TestGenerateChapterContent(t *testing.T) {
	t.Parallel()

	c := New(nil)
	ctx := context.Background()
	outline, err := c.GenerateOutline(ctx, domain.CourseParams{Title: "Go"})
	require.NoError(t, err)

	res, err := c.GenerateChapterContent(ctx, domain.CourseParams{}, outline.Outline, "cap2", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "# Concetti fondamentali\n")
	assert.Contains(t, res.Content, "## Terminologia essenziale\n")
	assert.Contains(t, res.Content, "### Definizioni chiave\n")
	assert.Contains(t, res.Content, "## Conclusione\n")
	assert.Equal(t, res.Content, markdown.Normalize(res.Content, markdown.DialectGeneric))

	titles := make([]string, 0)
	for _, s := range markdown.Split(res.Content) {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Introduzione", "Terminologia essenziale", "Framework teorico", "Conclusione"}, titles)

	_, err = c.GenerateChapterContent(ctx, domain.CourseParams{}, outline.Outline, "cap9", nil)
	assert.ErrorIs(t, err, generation.ErrChapterNotFound)
}

func TestGenerateExpandedContentIsLonger(t *testing.T) {
	t.Parallel()

	original := "## Sezione\n\nTesto originale."
	res, err := New(nil).GenerateExpandedContent(context.Background(), generation.NewExpansionRequest(original, "prompt"))
	require.NoError(t, err)
	assert.Greater(t, res.ExpandedLength, res.OriginalLength)
	assert.Equal(t, utf8.RuneCountInString(original), res.OriginalLength)
	assert.Contains(t, res.Content, "Testo originale.")
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).GenerateOutline(ctx, domain.CourseParams{})
	assert.ErrorIs(t, err, context.Canceled)

	status, err := New(nil).VerifyAPIKey(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Valid)
}
