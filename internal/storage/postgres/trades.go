package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// PutTrades inserts trades; rows already present are skipped.
func (s *Store) PutTrades(ctx context.Context, trades []model.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		if t.TxHash == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO curve_trades (
				chain_id, pool_address, block_number, tx_hash, log_index, kind, trader,
				zil_amount, token_amount, fee, new_price, block_ts
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (chain_id, pool_address, block_number, tx_hash, log_index) DO NOTHING
		`,
			int64(t.ChainID),
			storage.NormalizeAddress(t.Pool),
			int64(t.BlockNumber),
			t.TxHash,
			int64(t.LogIndex),
			string(t.Kind),
			t.Trader,
			t.ZilAmount,
			t.TokenAmount,
			t.Fee,
			t.NewPrice,
			int64(t.Timestamp),
		)
	}
	if err := sendBatch(ctx, s.pool, batch); err != nil {
		return fmt.Errorf("insert trades: %w", err)
	}
	return nil
}

// ListTrades returns a pool's trades newest first. limit <= 0 means all.
func (s *Store) ListTrades(ctx context.Context, chainID uint64, pool string, limit int) ([]model.Trade, error) {
	query := `
		SELECT chain_id, pool_address, block_number, tx_hash, log_index, kind, trader,
		       zil_amount::text, token_amount::text, fee::text, new_price::text, block_ts
		FROM curve_trades
		WHERE chain_id = $1 AND pool_address = $2
		ORDER BY block_number DESC, log_index DESC
	`
	args := []interface{}{int64(chainID), storage.NormalizeAddress(pool)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	out := make([]model.Trade, 0)
	for rows.Next() {
		var (
			t                      model.Trade
			chain, block, logIndex int64
			ts                     int64
			kind                   string
		)
		if err := rows.Scan(
			&chain,
			&t.Pool,
			&block,
			&t.TxHash,
			&logIndex,
			&kind,
			&t.Trader,
			&t.ZilAmount,
			&t.TokenAmount,
			&t.Fee,
			&t.NewPrice,
			&ts,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.ChainID = uint64(chain)
		t.BlockNumber = uint64(block)
		t.LogIndex = uint64(logIndex)
		t.Timestamp = uint64(ts)
		t.Kind = model.TradeKind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
