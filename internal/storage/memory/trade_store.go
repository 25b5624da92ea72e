package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]model.Trade // keyed by chain:pool:tradeID
}

var _ storage.TradeStore = (*TradeStore)(nil)

func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]model.Trade)}
}

// PutTrades stores trades; already-stored trades are left untouched.
func (s *TradeStore) PutTrades(_ context.Context, trades []model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		if t.TxHash == "" {
			return storage.ErrInvalidInput
		}
		key := tradeKey(t.ChainID, t.Pool, t.ID())
		if _, exists := s.data[key]; exists {
			continue
		}
		s.data[key] = t
	}
	return nil
}

// ListTrades returns a pool's trades, newest first.
func (s *TradeStore) ListTrades(_ context.Context, chainID uint64, pool string, limit int) ([]model.Trade, error) {
	pool = storage.NormalizeAddress(pool)

	s.mu.RLock()
	out := make([]model.Trade, 0)
	for _, t := range s.data {
		if t.ChainID == chainID && storage.NormalizeAddress(t.Pool) == pool {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return out[i].LogIndex > out[j].LogIndex
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func tradeKey(chainID uint64, pool, id string) string {
	return fmt.Sprintf("%d:%s:%s", chainID, storage.NormalizeAddress(pool), id)
}
