package expansion_test

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverSeedsPartialJobs(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	courseID := f.course.ID.String()

	require.NoError(t, f.courses.SaveChapterContent(ctx, &domain.ChapterContent{
		CourseID:       f.course.ID,
		ChapterID:      "cap1",
		Content:        chapterOne + "\nAltro testo.\n",
		OriginalLength: utf8.RuneCountInString(chapterOne),
	}))
	f.checkpoints.Put(&store.Checkpoint{
		CourseID:     courseID,
		ChapterID:    "cap2",
		Sections:     []markdown.Section{{Title: "Quattro", Content: "## Quattro\n\nEspanso."}},
		SourceDigest: store.Digest(chapterTwo),
	})

	orphan := uuid.New().String()
	f.checkpoints.Put(&store.Checkpoint{CourseID: orphan, ChapterID: "cap1"})

	n, err := f.ctrl.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, err := f.ctrl.Status(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, expansion.StatePartial, s.State)
	assert.Equal(t, &expansion.ResumePoint{ChapterID: "cap2", Section: 1}, s.ResumePoint)
	assert.Equal(t, 1, s.ExpandedChapters)
	assert.Equal(t, 2, s.TotalChapters)
	assert.True(t, s.Chapters[0].Expanded)

	assert.Nil(t, f.checkpoints.Get(orphan, "cap1"), "checkpoints of deleted courses are removed")

	n, err = f.ctrl.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "existing jobs are not replaced")
}

func TestRecoveredJobResumes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.ctrl.Expand(ctx, f.course.ID, expansion.Options{SingleChapter: "cap1"})
	require.NoError(t, err)
	require.Equal(t, expansion.StateCompleted, first.State)
	expandedCap1 := f.courses.Content(f.course.ID, "cap1")

	f.checkpoints.Put(&store.Checkpoint{
		CourseID:     f.course.ID.String(),
		ChapterID:    "cap2",
		Sections:     []markdown.Section{{Title: "Quattro", Content: "## Quattro\n\nEspanso."}},
		SourceDigest: store.Digest(chapterTwo),
	})
	f.ctrl.Forget(f.course.ID)

	n, err := f.ctrl.Recover(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	s, err := f.ctrl.Status(ctx, f.course.ID)
	require.NoError(t, err)
	section := s.ResumePoint.Section
	final, err := f.ctrl.Expand(ctx, f.course.ID, expansion.Options{
		ResumeChapter: s.ResumePoint.ChapterID,
		ResumeSection: &section,
	})
	require.NoError(t, err)

	assert.Equal(t, expansion.StateCompleted, final.State)
	assert.Equal(t, expandedCap1, f.courses.Content(f.course.ID, "cap1"))
	assert.Contains(t, f.courses.Content(f.course.ID, "cap2"), "## Quattro\n\nEspanso.")
	assert.Equal(t, []int{1}, callsFor(f.client.ExpandCalls()[3:], "cap2"))
}
