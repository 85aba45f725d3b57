// Package memory provides an in-memory implementation of the snapshot
// repository for tests and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

var _ execution.SnapshotRepository = (*SnapshotStore)(nil)

// SnapshotStore provides an in-memory implementation of
// execution.SnapshotRepository using a mutex-protected map.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]execution.Snapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[uuid.UUID]execution.Snapshot)}
}

// Save persists a snapshot, replacing any previous one for the same task.
func (s *SnapshotStore) Save(ctx context.Context, snapshot execution.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.TaskID] = snapshot
	return nil
}

// Get returns the snapshot for the given task, or nil when none exists.
func (s *SnapshotStore) Get(ctx context.Context, taskID uuid.UUID) (*execution.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[taskID]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

// List returns every stored snapshot.
func (s *SnapshotStore) List(ctx context.Context) ([]execution.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]execution.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	return out, nil
}
