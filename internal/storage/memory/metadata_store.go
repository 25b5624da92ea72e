package memory

import (
	"context"
	"sync"
	"time"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// MetadataStore is an in-memory implementation of storage.MetadataStore.
type MetadataStore struct {
	mu   sync.RWMutex
	data map[string]model.TokenMetadata // keyed by normalized pool address
	now  func() time.Time
}

var _ storage.MetadataStore = (*MetadataStore)(nil)

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		data: make(map[string]model.TokenMetadata),
		now:  time.Now,
	}
}

// GetMetadata returns the record for pool or storage.ErrNotFound.
func (s *MetadataStore) GetMetadata(_ context.Context, pool string) (model.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.data[storage.NormalizeAddress(pool)]
	if !ok {
		return model.TokenMetadata{}, storage.ErrNotFound
	}
	return meta, nil
}

// UpsertMetadata inserts or replaces the record for meta.PoolAddress.
// The first CreatedAt is kept across updates.
func (s *MetadataStore) UpsertMetadata(_ context.Context, meta model.TokenMetadata) error {
	key := storage.NormalizeAddress(meta.PoolAddress)
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.data[key]; ok {
		meta.CreatedAt = existing.CreatedAt
	} else if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now().UTC()
	}
	meta.PoolAddress = key
	s.data[key] = meta
	return nil
}
