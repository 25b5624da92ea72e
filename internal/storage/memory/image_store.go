package memory

import (
	"context"
	"sync"
	"time"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// ImageStore is an in-memory implementation of storage.ImageStore.
type ImageStore struct {
	mu   sync.RWMutex
	data map[string]model.Image
}

var _ storage.ImageStore = (*ImageStore)(nil)

func NewImageStore() *ImageStore {
	return &ImageStore{data: make(map[string]model.Image)}
}

func (s *ImageStore) PutImage(_ context.Context, img model.Image) error {
	if img.Key == "" || len(img.Data) == 0 {
		return storage.ErrInvalidInput
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	// Store a copy to prevent external mutation
	img.Data = append([]byte(nil), img.Data...)

	s.mu.Lock()
	s.data[img.Key] = img
	s.mu.Unlock()
	return nil
}

func (s *ImageStore) GetImage(_ context.Context, key string) (model.Image, error) {
	s.mu.RLock()
	img, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return model.Image{}, storage.ErrNotFound
	}
	img.Data = append([]byte(nil), img.Data...)
	return img, nil
}
