package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// UpsertTradeWindows inserts or updates aggregated trade windows.
func (s *Store) UpsertTradeWindows(ctx context.Context, windows []model.TradeWindow) error {
	if len(windows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range windows {
		batch.Queue(`
			INSERT INTO trade_windows (
				chain_id, pool_address, window_size_seconds, window_start_ts, window_end_ts,
				buy_count, sell_count, zil_in, zil_out, tokens_bought, tokens_sold, fees,
				open_price, close_price, first_block, last_block, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (chain_id, pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				buy_count = EXCLUDED.buy_count,
				sell_count = EXCLUDED.sell_count,
				zil_in = EXCLUDED.zil_in,
				zil_out = EXCLUDED.zil_out,
				tokens_bought = EXCLUDED.tokens_bought,
				tokens_sold = EXCLUDED.tokens_sold,
				fees = EXCLUDED.fees,
				open_price = EXCLUDED.open_price,
				close_price = EXCLUDED.close_price,
				first_block = LEAST(trade_windows.first_block, EXCLUDED.first_block),
				last_block = GREATEST(trade_windows.last_block, EXCLUDED.last_block),
				updated_at = now()
		`,
			int64(w.ChainID),
			storage.NormalizeAddress(w.PoolAddress),
			w.WindowSizeSecs,
			w.WindowStart,
			w.WindowEnd,
			int64(w.BuyCount),
			int64(w.SellCount),
			w.ZilIn,
			w.ZilOut,
			w.TokensBought,
			w.TokensSold,
			w.Fees,
			w.OpenPrice,
			w.ClosePrice,
			int64(w.FirstBlock),
			int64(w.LastBlock),
		)
	}
	if err := sendBatch(ctx, s.pool, batch); err != nil {
		return fmt.Errorf("upsert trade windows: %w", err)
	}
	return nil
}
