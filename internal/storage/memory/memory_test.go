package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

func TestTradeStore_PutAndList(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []model.Trade{
		{ChainID: 1, Pool: "0xPOOL", TxHash: "0xa", BlockNumber: 10, LogIndex: 0},
		{ChainID: 1, Pool: "0xpool", TxHash: "0xb", BlockNumber: 12, LogIndex: 3},
		{ChainID: 1, Pool: "0xpool", TxHash: "0xc", BlockNumber: 12, LogIndex: 5},
		{ChainID: 1, Pool: "0xother", TxHash: "0xd", BlockNumber: 20, LogIndex: 0},
		{ChainID: 2, Pool: "0xpool", TxHash: "0xe", BlockNumber: 30, LogIndex: 0},
	}
	require.NoError(t, store.PutTrades(ctx, trades))
	// Re-delivery is a no-op.
	require.NoError(t, store.PutTrades(ctx, trades[:2]))
	assert.Equal(t, 5, store.Len())

	got, err := store.ListTrades(ctx, 1, "0xPool", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "0xc", got[0].TxHash)
	assert.Equal(t, "0xb", got[1].TxHash)
	assert.Equal(t, "0xa", got[2].TxHash)

	limited, err := store.ListTrades(ctx, 1, "0xpool", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "0xc", limited[0].TxHash)
}

func TestTradeStore_RejectsMissingTxHash(t *testing.T) {
	store := NewTradeStore()
	err := store.PutTrades(context.Background(), []model.Trade{{Pool: "0xpool"}})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestMetadataStore_UpsertKeepsCreatedAt(t *testing.T) {
	store := NewMetadataStore()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return created }
	ctx := context.Background()

	_, err := store.GetMetadata(ctx, "0xPool")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.UpsertMetadata(ctx, model.TokenMetadata{PoolAddress: "0xPool", Name: "First"}))
	store.now = func() time.Time { return created.Add(time.Hour) }
	require.NoError(t, store.UpsertMetadata(ctx, model.TokenMetadata{PoolAddress: "0xpool", Name: "Second"}))

	got, err := store.GetMetadata(ctx, "0XPOOL")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
	assert.Equal(t, "0xpool", got.PoolAddress)
	assert.Equal(t, created, got.CreatedAt)

	assert.ErrorIs(t, store.UpsertMetadata(ctx, model.TokenMetadata{}), storage.ErrInvalidInput)
}

func TestImageStore_PutGet(t *testing.T) {
	store := NewImageStore()
	ctx := context.Background()

	data := []byte{1, 2, 3}
	require.NoError(t, store.PutImage(ctx, model.Image{Key: "abc.png", ContentType: "image/png", Data: data}))
	data[0] = 9

	got, err := store.GetImage(ctx, "abc.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Data)
	assert.Equal(t, "image/png", got.ContentType)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = store.GetImage(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.PutImage(ctx, model.Image{Key: "empty"}), storage.ErrInvalidInput)
}

func TestWindowStore_Upsert(t *testing.T) {
	store := NewWindowStore()
	ctx := context.Background()
	start := time.Unix(3600, 0).UTC()

	require.NoError(t, store.UpsertTradeWindows(ctx, []model.TradeWindow{
		{ChainID: 1, PoolAddress: "0xb", WindowSizeSecs: 3600, WindowStart: start, BuyCount: 1},
		{ChainID: 1, PoolAddress: "0xa", WindowSizeSecs: 3600, WindowStart: start, BuyCount: 2},
	}))
	require.NoError(t, store.UpsertTradeWindows(ctx, []model.TradeWindow{
		{ChainID: 1, PoolAddress: "0xb", WindowSizeSecs: 3600, WindowStart: start, BuyCount: 7},
	}))

	got := store.Windows()
	require.Len(t, got, 2)
	assert.Equal(t, "0xa", got[0].PoolAddress)
	assert.Equal(t, uint64(7), got[1].BuyCount)
}

func TestCheckpointStore(t *testing.T) {
	store := NewCheckpointStore()
	ctx := context.Background()

	_, ok, err := store.LoadCheckpoint(ctx, "agg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveCheckpoint(ctx, "agg", 42))
	v, ok, err := store.LoadCheckpoint(ctx, "agg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)

	assert.Error(t, store.SaveCheckpoint(ctx, "", 1))
}
