package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

// WindowStore is an in-memory implementation of storage.WindowStore.
type WindowStore struct {
	mu   sync.RWMutex
	data map[string]model.TradeWindow
}

var _ storage.WindowStore = (*WindowStore)(nil)

func NewWindowStore() *WindowStore {
	return &WindowStore{data: make(map[string]model.TradeWindow)}
}

// UpsertTradeWindows replaces windows by (chain, pool, size, start).
func (s *WindowStore) UpsertTradeWindows(_ context.Context, windows []model.TradeWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range windows {
		key := fmt.Sprintf("%d:%s:%d:%d", w.ChainID, storage.NormalizeAddress(w.PoolAddress), w.WindowSizeSecs, w.WindowStart.Unix())
		s.data[key] = w
	}
	return nil
}

// Windows returns every stored window ordered by pool then start time.
func (s *WindowStore) Windows() []model.TradeWindow {
	s.mu.RLock()
	out := make([]model.TradeWindow, 0, len(s.data))
	for _, w := range s.data {
		out = append(out, w)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PoolAddress != out[j].PoolAddress {
			return out[i].PoolAddress < out[j].PoolAddress
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out
}
