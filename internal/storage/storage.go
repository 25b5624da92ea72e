package storage

import (
	"context"
	"strings"

	"launchpad/internal/model"
)

// TradeSink receives decoded trades from the tracker. Sinks must tolerate
// trades they have already seen.
type TradeSink interface {
	PutTrades(ctx context.Context, trades []model.Trade) error
}

// TradeStore is a sink that can also answer history queries.
type TradeStore interface {
	TradeSink
	// ListTrades returns a pool's trades newest first. limit <= 0 means all.
	ListTrades(ctx context.Context, chainID uint64, pool string, limit int) ([]model.Trade, error)
}

// MetadataStore holds off-chain token metadata keyed by pool address.
type MetadataStore interface {
	GetMetadata(ctx context.Context, pool string) (model.TokenMetadata, error)
	UpsertMetadata(ctx context.Context, meta model.TokenMetadata) error
}

// ImageStore is a key-value store for token images.
type ImageStore interface {
	PutImage(ctx context.Context, img model.Image) error
	GetImage(ctx context.Context, key string) (model.Image, error)
}

// WindowStore persists aggregated trade windows.
type WindowStore interface {
	UpsertTradeWindows(ctx context.Context, windows []model.TradeWindow) error
}

// CheckpointStore keeps named progress markers.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, name string, value uint64) error
}

// NormalizeAddress is the canonical key form for pool addresses.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
