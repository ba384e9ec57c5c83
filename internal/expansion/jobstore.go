package expansion

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStore holds the latest expansion job of each course.
type JobStore interface {
	// Begin records s as the course's job. It returns ErrJobActive, and
	// leaves the existing job untouched, if that job is still active.
	Begin(s *Summary) error

	// Seed records s only if the course has no job yet.
	Seed(s *Summary) bool

	// Get returns a copy of the course's job.
	Get(courseID uuid.UUID) (*Summary, bool)

	// State returns the job's state, or StateNotStarted.
	State(courseID uuid.UUID) State

	// Update applies fn to the job atomically and returns a copy of the
	// result. If fn returns an error the job is left unchanged.
	// Returns ErrNoJob when the course has no job.
	Update(courseID uuid.UUID, fn func(*Summary) error) (*Summary, error)

	// Delete forgets the course's job.
	Delete(courseID uuid.UUID)
}

// MemoryJobStore is a JobStore backed by a map.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Summary
}

var _ JobStore = (*MemoryJobStore)(nil)

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]*Summary)}
}

// Begin implements JobStore.
func (m *MemoryJobStore) Begin(s *Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.jobs[s.CourseID]; ok && cur.State.Active() {
		return ErrJobActive
	}
	m.jobs[s.CourseID] = s.Clone()
	return nil
}

// Seed implements JobStore.
func (m *MemoryJobStore) Seed(s *Summary) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[s.CourseID]; ok {
		return false
	}
	m.jobs[s.CourseID] = s.Clone()
	return true
}

// Get implements JobStore.
func (m *MemoryJobStore) Get(courseID uuid.UUID) (*Summary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.jobs[courseID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// State implements JobStore.
func (m *MemoryJobStore) State(courseID uuid.UUID) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.jobs[courseID]; ok {
		return s.State
	}
	return StateNotStarted
}

// Update implements JobStore.
func (m *MemoryJobStore) Update(courseID uuid.UUID, fn func(*Summary) error) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[courseID]
	if !ok {
		return nil, ErrNoJob
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	m.jobs[courseID] = next
	return next.Clone(), nil
}

// Delete implements JobStore.
func (m *MemoryJobStore) Delete(courseID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, courseID)
}
