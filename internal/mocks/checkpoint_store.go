package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
)

// MockCheckpointStore is an in-memory store.CheckpointStore.
type MockCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[store.CheckpointKey]*store.Checkpoint

	SaveFn func(ctx context.Context, cp *store.Checkpoint) error
	LoadFn func(ctx context.Context, courseID, chapterID string) (*store.Checkpoint, error)

	// Saves records the section count of every saved checkpoint, in order.
	Saves   []int
	Deletes []store.CheckpointKey
}

// NewMockCheckpointStore creates an empty MockCheckpointStore.
func NewMockCheckpointStore() *MockCheckpointStore {
	return &MockCheckpointStore{checkpoints: make(map[store.CheckpointKey]*store.Checkpoint)}
}

var _ store.CheckpointStore = (*MockCheckpointStore)(nil)

// Put stores cp directly, bypassing SaveFn and call tracking.
func (m *MockCheckpointStore) Put(cp *store.Checkpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.Key()] = clone(cp)
}

// Get returns the stored checkpoint for a chapter, or nil.
func (m *MockCheckpointStore) Get(courseID, chapterID string) *store.Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[store.CheckpointKey{CourseID: courseID, ChapterID: chapterID}]
	if !ok {
		return nil
	}
	return clone(cp)
}

// Load implements store.CheckpointStore.
func (m *MockCheckpointStore) Load(ctx context.Context, courseID, chapterID string) (*store.Checkpoint, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, courseID, chapterID)
	}
	if cp := m.Get(courseID, chapterID); cp != nil {
		return cp, nil
	}
	return nil, store.ErrCheckpointNotFound
}

// Save implements store.CheckpointStore.
func (m *MockCheckpointStore) Save(ctx context.Context, cp *store.Checkpoint) error {
	m.mu.Lock()
	m.Saves = append(m.Saves, len(cp.Sections))
	m.mu.Unlock()

	if m.SaveFn != nil {
		if err := m.SaveFn(ctx, cp); err != nil {
			return err
		}
	}
	m.Put(cp)
	return nil
}

// Delete implements store.CheckpointStore.
func (m *MockCheckpointStore) Delete(ctx context.Context, courseID, chapterID string) error {
	key := store.CheckpointKey{CourseID: courseID, ChapterID: chapterID}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, key)
	delete(m.checkpoints, key)
	return nil
}

// List implements store.CheckpointStore.
func (m *MockCheckpointStore) List(ctx context.Context) ([]store.CheckpointKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]store.CheckpointKey, 0, len(m.checkpoints))
	for k := range m.checkpoints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CourseID != keys[j].CourseID {
			return keys[i].CourseID < keys[j].CourseID
		}
		return keys[i].ChapterID < keys[j].ChapterID
	})
	return keys, nil
}

// SaveCount returns the number of Save calls so far.
func (m *MockCheckpointStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saves)
}

func clone(cp *store.Checkpoint) *store.Checkpoint {
	c := *cp
	c.Sections = append([]markdown.Section(nil), cp.Sections...)
	return &c
}
