// Package filestore implements store.CheckpointStore on a local directory,
// one JSON file per chapter named {course}_{chapter}_temp.json.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/platform/logger"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
)

const fileSuffix = "_temp.json"

// CheckpointStore implements store.CheckpointStore on the filesystem.
type CheckpointStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

var _ store.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates dir if needed and returns a store rooted there.
func NewCheckpointStore(dir string, logger *slog.Logger) (*CheckpointStore, error) {
	if dir == "" {
		return nil, errors.New("checkpoint directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "file_checkpoint_store")),
	}, nil
}

// path returns the file of a checkpoint. IDs that would escape dir are
// rejected.
func (s *CheckpointStore) path(courseID, chapterID string) (string, error) {
	for _, id := range []string{courseID, chapterID} {
		if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
			return "", fmt.Errorf("%w: unusable checkpoint id %q", store.ErrInvalidEntity, id)
		}
	}
	return filepath.Join(s.dir, courseID+"_"+chapterID+fileSuffix), nil
}

// Load implements store.CheckpointStore.Load.
func (s *CheckpointStore) Load(ctx context.Context, courseID, chapterID string) (*store.Checkpoint, error) {
	path, err := s.path(courseID, chapterID)
	if err != nil {
		return nil, store.ErrCheckpointNotFound
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, persistenceError("load", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("discarding unreadable checkpoint",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, store.ErrCheckpointNotFound
	}
	cp.CourseID = courseID
	cp.ChapterID = chapterID
	return &cp, nil
}

// Save implements store.CheckpointStore.Save. The file is replaced
// atomically so a crash never leaves a truncated checkpoint.
func (s *CheckpointStore) Save(ctx context.Context, cp *store.Checkpoint) error {
	path, err := s.path(cp.CourseID, cp.ChapterID)
	if err != nil {
		return store.NewStoreError("checkpoint", "save", "invalid key", err)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return store.NewStoreError("checkpoint", "save", "failed to encode checkpoint",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return persistenceError("save", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return persistenceError("save", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return persistenceError("save", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save checkpoint",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return persistenceError("save", err)
	}
	return nil
}

// Delete implements store.CheckpointStore.Delete.
func (s *CheckpointStore) Delete(ctx context.Context, courseID, chapterID string) error {
	path, err := s.path(courseID, chapterID)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return persistenceError("delete", err)
	}
	return nil
}

// List implements store.CheckpointStore.List. Course IDs are UUIDs, so the
// first underscore of a file name ends the course ID.
func (s *CheckpointStore) List(ctx context.Context) ([]store.CheckpointKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, persistenceError("list", err)
	}

	var keys []store.CheckpointKey
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), fileSuffix)
		if !ok {
			continue
		}
		courseID, chapterID, ok := strings.Cut(name, "_")
		if !ok || courseID == "" || chapterID == "" {
			continue
		}
		keys = append(keys, store.CheckpointKey{CourseID: courseID, ChapterID: chapterID})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CourseID != keys[j].CourseID {
			return keys[i].CourseID < keys[j].CourseID
		}
		return keys[i].ChapterID < keys[j].ChapterID
	})
	return keys, nil
}

func persistenceError(operation string, err error) error {
	return store.NewStoreError("checkpoint", operation, "file error",
		fmt.Errorf("%w: %w", store.ErrPersistence, err))
}
