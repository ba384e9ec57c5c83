package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/filestore"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const courseID = "6f1c2b7e-4a57-4c8a-9a57-3d5f0f1e2a10"

func newStore(t *testing.T) (*filestore.CheckpointStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "checkpoints")
	s, err := filestore.NewCheckpointStore(dir, nil)
	require.NoError(t, err)
	return s, dir
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s, dir := newStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)

	cp := &store.Checkpoint{
		CourseID:     courseID,
		ChapterID:    "cap1",
		Sections:     []markdown.Section{{Title: "Avvio", Content: "## Avvio\n\nTesto ampliato."}},
		SourceDigest: store.Digest("# Capitolo"),
	}
	require.NoError(t, s.Save(ctx, cp))
	assert.FileExists(t, filepath.Join(dir, courseID+"_cap1_temp.json"))

	cp.Sections = append(cp.Sections, markdown.Section{Title: "Fine", Content: "## Fine\n\nAltro."})
	require.NoError(t, s.Save(ctx, cp))

	got, err := s.Load(ctx, courseID, "cap1")
	require.NoError(t, err)
	assert.Equal(t, cp.Sections, got.Sections)
	assert.Equal(t, cp.SourceDigest, got.SourceDigest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	require.NoError(t, s.Delete(ctx, courseID, "cap1"))
	require.NoError(t, s.Delete(ctx, courseID, "cap1"))
	_, err = s.Load(ctx, courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

func TestCheckpointStore_List(t *testing.T) {
	t.Parallel()
	s, dir := newStore(t)
	ctx := context.Background()

	for _, chapterID := range []string{"cap2", "cap_1"} {
		require.NoError(t, s.Save(ctx, &store.Checkpoint{CourseID: courseID, ChapterID: chapterID}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub_x_temp.json"), 0o750))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.CheckpointKey{
		{CourseID: courseID, ChapterID: "cap2"},
		{CourseID: courseID, ChapterID: "cap_1"},
	}, keys)
}

func TestCheckpointStore_RejectsPathIDs(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.Save(ctx, &store.Checkpoint{CourseID: courseID, ChapterID: "../escape"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.Load(ctx, courseID, "../escape")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

func TestCheckpointStore_CorruptFile(t *testing.T) {
	t.Parallel()
	s, dir := newStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, courseID+"_cap1_temp.json"), []byte("{"), 0o600))
	_, err := s.Load(context.Background(), courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

func TestNewCheckpointStore_EmptyDir(t *testing.T) {
	t.Parallel()
	_, err := filestore.NewCheckpointStore("", nil)
	assert.Error(t, err)
}
