package postgres

import (
	"context"
	"fmt"
	"time"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// GetMetadata returns the record for pool or storage.ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, pool string) (model.TokenMetadata, error) {
	var (
		meta       model.TokenMetadata
		chainID    int64
		launchType string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, chain_id, launch_type, name, symbol, description,
		       image_url, website, twitter, telegram, created_at
		FROM token_metadata
		WHERE pool_address = $1
	`, storage.NormalizeAddress(pool))
	err := row.Scan(
		&meta.PoolAddress,
		&chainID,
		&launchType,
		&meta.Name,
		&meta.Symbol,
		&meta.Description,
		&meta.ImageURL,
		&meta.Website,
		&meta.Twitter,
		&meta.Telegram,
		&meta.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return model.TokenMetadata{}, storage.ErrNotFound
		}
		return model.TokenMetadata{}, fmt.Errorf("get metadata: %w", err)
	}
	meta.ChainID = uint64(chainID)
	meta.LaunchType = model.LaunchType(launchType)
	meta.CreatedAt = meta.CreatedAt.UTC()
	return meta, nil
}

// UpsertMetadata inserts or updates the record for meta.PoolAddress.
// created_at keeps its first value.
func (s *Store) UpsertMetadata(ctx context.Context, meta model.TokenMetadata) error {
	pool := storage.NormalizeAddress(meta.PoolAddress)
	if pool == "" {
		return storage.ErrInvalidInput
	}
	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_metadata (
			pool_address, chain_id, launch_type, name, symbol, description,
			image_url, website, twitter, telegram, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (pool_address)
		DO UPDATE SET
			chain_id = EXCLUDED.chain_id,
			launch_type = EXCLUDED.launch_type,
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			website = EXCLUDED.website,
			twitter = EXCLUDED.twitter,
			telegram = EXCLUDED.telegram,
			updated_at = now()
	`,
		pool,
		int64(meta.ChainID),
		string(meta.LaunchType),
		meta.Name,
		meta.Symbol,
		meta.Description,
		meta.ImageURL,
		meta.Website,
		meta.Twitter,
		meta.Telegram,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}
