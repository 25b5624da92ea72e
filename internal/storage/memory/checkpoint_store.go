package memory

import (
	"context"
	"fmt"
	"sync"

	"launchpad/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu   sync.RWMutex
	data map[string]uint64
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{data: make(map[string]uint64)}
}

func (s *CheckpointStore) LoadCheckpoint(_ context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("checkpoint name required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[name]
	return v, ok, nil
}

func (s *CheckpointStore) SaveCheckpoint(_ context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	s.mu.Lock()
	s.data[name] = value
	s.mu.Unlock()
	return nil
}
