package postgres

import (
	"context"
	"fmt"
)

// LoadCheckpoint returns the stored value for name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("checkpoint name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT value FROM checkpoints WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveCheckpoint upserts the value for name.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkpoints (name, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, name, int64(value))
	return err
}
