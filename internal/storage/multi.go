package storage

import (
	"context"
	"fmt"

	"launchpad/internal/model"
)

// MultiSink forwards every batch to each sink in order and stops at the
// first failure.
type MultiSink []TradeSink

var _ TradeSink = MultiSink(nil)

func (m MultiSink) PutTrades(ctx context.Context, trades []model.Trade) error {
	for i, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutTrades(ctx, trades); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
