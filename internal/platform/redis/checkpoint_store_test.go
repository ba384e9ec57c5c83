package redis_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/redis"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const courseID = "6f1c2b7e-4a57-4c8a-9a57-3d5f0f1e2a10"

func newStore(t *testing.T) (*redis.CheckpointStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewCheckpointStore(client, nil), srv
}

func checkpoint(chapterID string, sections int) *store.Checkpoint {
	cp := &store.Checkpoint{
		CourseID:     courseID,
		ChapterID:    chapterID,
		SourceDigest: store.Digest("# Capitolo"),
	}
	for i := 0; i < sections; i++ {
		cp.Sections = append(cp.Sections, markdown.Section{
			Title:   fmt.Sprintf("Sezione %d", i+1),
			Content: fmt.Sprintf("## Sezione %d\n\nTesto ampliato.", i+1),
		})
	}
	return cp
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s, srv := newStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)

	cp := checkpoint("cap1", 2)
	require.NoError(t, s.Save(ctx, cp))
	assert.True(t, srv.Exists("coursegen:checkpoint:"+courseID+":cap1"))
	assert.Zero(t, srv.TTL("coursegen:checkpoint:"+courseID+":cap1"))

	got, err := s.Load(ctx, courseID, "cap1")
	require.NoError(t, err)
	assert.Equal(t, cp.Sections, got.Sections)
	assert.Equal(t, cp.SourceDigest, got.SourceDigest)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, courseID, "cap1"))
	require.NoError(t, s.Delete(ctx, courseID, "cap1"))
	_, err = s.Load(ctx, courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

func TestCheckpointStore_List(t *testing.T) {
	t.Parallel()
	s, srv := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, checkpoint("cap1", 1)))
	require.NoError(t, s.Save(ctx, checkpoint("cap:2", 1)))
	require.NoError(t, srv.Set("coursegen:other", "x"))

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.CheckpointKey{
		{CourseID: courseID, ChapterID: "cap1"},
		{CourseID: courseID, ChapterID: "cap:2"},
	}, keys)
}

func TestCheckpointStore_CorruptValue(t *testing.T) {
	t.Parallel()
	s, srv := newStore(t)

	require.NoError(t, srv.Set(redis.Key(courseID, "cap1"), "{not json"))
	_, err := s.Load(context.Background(), courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}

func TestCheckpointStore_ServerErrors(t *testing.T) {
	t.Parallel()
	s, srv := newStore(t)
	ctx := context.Background()
	srv.SetError("ERR simulated outage")

	err := s.Save(ctx, checkpoint("cap1", 1))
	assert.ErrorIs(t, err, store.ErrPersistence)

	_, err = s.Load(ctx, courseID, "cap1")
	assert.ErrorIs(t, err, store.ErrPersistence)

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, store.ErrPersistence)

	assert.ErrorIs(t, s.Delete(ctx, courseID, "cap1"), store.ErrPersistence)
}

func TestConnect(t *testing.T) {
	t.Parallel()
	srv := miniredis.RunT(t)

	client, err := redis.Connect(context.Background(), "redis://"+srv.Addr()+"/0")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = redis.Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
