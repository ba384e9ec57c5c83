package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore is a TaskStore that keeps tasks in memory. Tasks do not
// survive a restart; use it when no database is configured and in tests.
type MemoryTaskStore struct {
	mutex sync.RWMutex
	tasks map[uuid.UUID]*Record

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

var _ TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty MemoryTaskStore
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[uuid.UUID]*Record)}
}

// Put stores a record directly.
func (s *MemoryTaskStore) Put(rec *Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	c := *rec
	s.tasks[rec.ID] = &c
}

// Get returns a copy of the stored record, or nil.
func (s *MemoryTaskStore) Get(id uuid.UUID) *Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.tasks[id]
	if !ok {
		return nil
	}
	c := *rec
	return &c
}

// SaveTask implements TaskStore.
func (s *MemoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		if err := s.SaveFn(ctx, task); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	s.Put(&Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   append([]byte(nil), task.Payload()...),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

// UpdateTaskStatus implements TaskStore.
func (s *MemoryTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if s.UpdateStatusFn != nil {
		if err := s.UpdateStatusFn(ctx, taskID, status, errorMsg); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	rec, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// GetPendingTasks implements TaskStore.
func (s *MemoryTaskStore) GetPendingTasks(ctx context.Context) ([]*Record, error) {
	return s.byStatus(TaskStatusPending), nil
}

// GetProcessingTasks implements TaskStore.
func (s *MemoryTaskStore) GetProcessingTasks(ctx context.Context) ([]*Record, error) {
	return s.byStatus(TaskStatusProcessing), nil
}

func (s *MemoryTaskStore) byStatus(status TaskStatus) []*Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*Record
	for _, rec := range s.tasks {
		if rec.Status == status {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
