package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps settings in process memory. Used when no settings file
// is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	classStarts map[int]ClassStartOverride
	assignments []Assignment
	nextID      int64
}

// NewMemoryStore creates an empty in-memory settings store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{classStarts: make(map[int]ClassStartOverride)}
}

func (m *MemoryStore) ClassStart(ctx context.Context, subjectID int) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.classStarts[subjectID]
	return o.ClassStart, ok, nil
}

func (m *MemoryStore) ClassStarts(ctx context.Context) ([]ClassStartOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClassStartOverride, 0, len(m.classStarts))
	for _, o := range m.classStarts {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (m *MemoryStore) SetClassStart(ctx context.Context, subjectID int, start string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classStarts[subjectID] = ClassStartOverride{SubjectID: subjectID, ClassStart: start, UpdatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) DeleteClassStart(ctx context.Context, subjectID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.classStarts, subjectID)
	return nil
}

func (m *MemoryStore) RecordAssignment(ctx context.Context, slot, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.assignments = append(m.assignments, Assignment{ID: m.nextID, Slot: slot, Source: source, AssignedAt: time.Now()})
	if len(m.assignments) > MaxAssignmentHistory {
		m.assignments = m.assignments[len(m.assignments)-MaxAssignmentHistory:]
	}
	return nil
}

func (m *MemoryStore) Assignments(ctx context.Context, limit int) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.assignments) {
		limit = len(m.assignments)
	}
	out := make([]Assignment, 0, limit)
	for i := len(m.assignments) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.assignments[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
