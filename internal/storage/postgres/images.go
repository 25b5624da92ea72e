package postgres

import (
	"context"
	"fmt"
	"time"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// PutImage stores image bytes under img.Key, replacing any previous blob.
func (s *Store) PutImage(ctx context.Context, img model.Image) error {
	if img.Key == "" || len(img.Data) == 0 {
		return storage.ErrInvalidInput
	}
	createdAt := img.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_images (key, content_type, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET content_type = EXCLUDED.content_type, data = EXCLUDED.data
	`, img.Key, img.ContentType, img.Data, createdAt)
	if err != nil {
		return fmt.Errorf("put image: %w", err)
	}
	return nil
}

func (s *Store) GetImage(ctx context.Context, key string) (model.Image, error) {
	img := model.Image{Key: key}
	row := s.pool.QueryRow(ctx, `SELECT content_type, data, created_at FROM token_images WHERE key = $1`, key)
	if err := row.Scan(&img.ContentType, &img.Data, &img.CreatedAt); err != nil {
		if isNoRows(err) {
			return model.Image{}, storage.ErrNotFound
		}
		return model.Image{}, fmt.Errorf("get image: %w", err)
	}
	img.CreatedAt = img.CreatedAt.UTC()
	return img, nil
}
