package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes every checkpoint key.
const KeyPrefix = "coursegen:checkpoint:"

const scanBatch = 100

// CheckpointStore implements store.CheckpointStore on Redis.
type CheckpointStore struct {
	client goredis.Cmdable
	logger *slog.Logger
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a checkpoint store over client.
func NewCheckpointStore(client goredis.Cmdable, logger *slog.Logger) *CheckpointStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointStore{
		client: client,
		logger: logger.With(slog.String("component", "redis_checkpoint_store")),
	}
}

// Connect parses a redis:// URL and checks that the server answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Key returns the Redis key of a chapter's checkpoint.
func Key(courseID, chapterID string) string {
	return KeyPrefix + courseID + ":" + chapterID
}

// parseKey splits a key produced by Key. Course IDs are UUIDs and never
// contain a colon; chapter IDs may.
func parseKey(key string) (store.CheckpointKey, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return store.CheckpointKey{}, false
	}
	courseID, chapterID, ok := strings.Cut(rest, ":")
	if !ok || courseID == "" || chapterID == "" {
		return store.CheckpointKey{}, false
	}
	return store.CheckpointKey{CourseID: courseID, ChapterID: chapterID}, true
}

// Load implements store.CheckpointStore.Load.
func (s *CheckpointStore) Load(ctx context.Context, courseID, chapterID string) (*store.Checkpoint, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := s.client.Get(ctx, Key(courseID, chapterID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrCheckpointNotFound
	}
	if err != nil {
		log.Error("failed to load checkpoint",
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()))
		return nil, persistenceError("load", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		log.Warn("discarding unreadable checkpoint",
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()))
		return nil, store.ErrCheckpointNotFound
	}
	cp.CourseID = courseID
	cp.ChapterID = chapterID
	return &cp, nil
}

// Save implements store.CheckpointStore.Save. Checkpoints do not expire.
func (s *CheckpointStore) Save(ctx context.Context, cp *store.Checkpoint) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return store.NewStoreError("checkpoint", "save", "failed to encode checkpoint",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	if err := s.client.Set(ctx, Key(cp.CourseID, cp.ChapterID), data, 0).Err(); err != nil {
		log.Error("failed to save checkpoint",
			slog.String("course_id", cp.CourseID),
			slog.String("chapter_id", cp.ChapterID),
			slog.String("error", err.Error()))
		return persistenceError("save", err)
	}
	log.Debug("checkpoint saved",
		slog.String("course_id", cp.CourseID),
		slog.String("chapter_id", cp.ChapterID),
		slog.Int("sections", len(cp.Sections)))
	return nil
}

// Delete implements store.CheckpointStore.Delete.
func (s *CheckpointStore) Delete(ctx context.Context, courseID, chapterID string) error {
	if err := s.client.Del(ctx, Key(courseID, chapterID)).Err(); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete checkpoint",
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()))
		return persistenceError("delete", err)
	}
	return nil
}

// List implements store.CheckpointStore.List. It walks the key space with
// SCAN rather than KEYS.
func (s *CheckpointStore) List(ctx context.Context) ([]store.CheckpointKey, error) {
	var (
		keys   []store.CheckpointKey
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, persistenceError("list", err)
		}
		for _, k := range batch {
			if key, ok := parseKey(k); ok {
				keys = append(keys, key)
			}
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func persistenceError(operation string, err error) error {
	return store.NewStoreError("checkpoint", operation, "redis error",
		fmt.Errorf("%w: %w", store.ErrPersistence, err))
}
