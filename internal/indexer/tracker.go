package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchpad/internal/chain"
	"launchpad/internal/model"
	"launchpad/internal/observability"
	"launchpad/internal/poller"
	"launchpad/internal/storage"
	"launchpad/internal/trades"
)

const (
	DefaultWindowBlocks = 5000
	DefaultBatchSize    = 1000
)

// TrackerConfig holds runtime settings for one pool's trade tracker.
type TrackerConfig struct {
	ChainID      uint64
	Pool         common.Address
	WindowBlocks uint64
	BatchSize    uint64
	Retry        RetryPolicy
}

// Tracker re-derives a pool's recent trade history from a trailing block
// window on every poll. Trades older than the window drop out of the
// snapshot; the sink keeps them.
type Tracker struct {
	cfg     TrackerConfig
	reader  chain.LogReader
	decoder *trades.Decoder
	sink    storage.TradeSink
	logger  *zap.Logger
	metrics *observability.Metrics

	snapshot poller.Latest[[]model.Trade]

	mu   sync.Mutex
	seen map[string]uint64 // trade id -> block
}

// NewTracker builds a Tracker. sink may be nil when only the in-memory
// snapshot is wanted.
func NewTracker(cfg TrackerConfig, reader chain.LogReader, decoder *trades.Decoder, sink storage.TradeSink, logger *zap.Logger, metrics *observability.Metrics) (*Tracker, error) {
	if reader == nil {
		return nil, fmt.Errorf("log reader is nil")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if cfg.Pool == (common.Address{}) {
		return nil, fmt.Errorf("pool address is required")
	}
	if cfg.WindowBlocks == 0 {
		cfg.WindowBlocks = DefaultWindowBlocks
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		cfg:     cfg,
		reader:  reader,
		decoder: decoder,
		sink:    sink,
		logger:  logger.With(zap.String("pool", cfg.Pool.Hex())),
		metrics: metrics,
		seen:    make(map[string]uint64),
	}, nil
}

// Key identifies the tracked resource for a poller.Registry.
func (t *Tracker) Key() string {
	return fmt.Sprintf("trades:%d:%s", t.cfg.ChainID, t.cfg.Pool.Hex())
}

// Trades returns the latest snapshot, newest first.
func (t *Tracker) Trades() []model.Trade {
	snap, _ := t.snapshot.Get()
	out := make([]model.Trade, len(snap))
	copy(out, snap)
	return out
}

// Discard makes any in-flight poll drop its result. The current snapshot
// is kept.
func (t *Tracker) Discard() {
	t.snapshot.Invalidate()
}

// Poll runs one cycle. It matches poller.Func.
func (t *Tracker) Poll(ctx context.Context) error {
	ticket := t.snapshot.Begin()

	latest, err := withRetry(ctx, t.cfg.Retry, t.logger, "latest block", t.reader.LatestBlockNumber)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	from := uint64(0)
	if latest >= t.cfg.WindowBlocks {
		from = latest - t.cfg.WindowBlocks + 1
	}

	ranges, err := SplitRange(from, latest, t.cfg.BatchSize)
	if err != nil {
		return err
	}

	var records []model.LogRecord
	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		logs, err := t.filterLogs(ctx, blockRange)
		if err != nil {
			return fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		for _, log := range logs {
			if log.Removed {
				continue
			}
			ts, err := t.blockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, buildLogRecord(t.cfg.ChainID, log, ts))
		}
	}

	decoded := t.decoder.DecodeAll(records, func(f model.DecodeFailure) {
		t.metrics.RecordMalformed()
		t.logger.Warn("malformed trade log",
			zap.Uint64("block_number", f.BlockNumber),
			zap.String("tx_hash", f.TxHash),
			zap.Uint64("log_index", f.LogIndex),
			zap.String("reason", f.Reason),
		)
	})
	decoded = trades.Dedupe(decoded)
	trades.SortNewestFirst(decoded)

	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.snapshot.Commit(ticket, decoded) {
		t.logger.Debug("discard superseded poll result")
		return nil
	}
	t.metrics.SetHead(t.cfg.Pool.Hex(), latest)
	t.prune(from)

	fresh := t.unseen(decoded)
	if len(fresh) == 0 {
		return nil
	}
	if t.sink != nil {
		if err := t.sink.PutTrades(ctx, fresh); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
		t.metrics.RecordStored(len(fresh))
	}
	t.markSeen(fresh)
	for _, trade := range fresh {
		t.metrics.RecordTrades(string(trade.Kind), 1)
	}

	t.logger.Info("new trades", zap.Int("count", len(fresh)), zap.Uint64("from", from), zap.Uint64("to", latest))
	return nil
}

func (t *Tracker) filterLogs(ctx context.Context, r BlockRange) ([]types.Log, error) {
	start := time.Now()
	logs, err := withRetry(ctx, t.cfg.Retry, t.logger, "filter logs", func(ctx context.Context) ([]types.Log, error) {
		return t.reader.FilterLogs(ctx, r.From, r.To, []common.Address{t.cfg.Pool}, t.decoder.Topics())
	})
	t.metrics.RecordRPC("eth_getLogs", time.Since(start))
	return logs, err
}

func (t *Tracker) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	return withRetry(ctx, t.cfg.Retry, t.logger, "block timestamp", func(ctx context.Context) (uint64, error) {
		return t.reader.BlockTimestamp(ctx, blockNumber)
	})
}

// unseen returns trades not yet handed to the sink, oldest first.
func (t *Tracker) unseen(newestFirst []model.Trade) []model.Trade {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Trade, 0)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		if _, ok := t.seen[newestFirst[i].ID()]; ok {
			continue
		}
		out = append(out, newestFirst[i])
	}
	return out
}

func (t *Tracker) markSeen(batch []model.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, trade := range batch {
		t.seen[trade.ID()] = trade.BlockNumber
	}
}

// prune forgets trades below the window start; they can no longer be read back.
func (t *Tracker) prune(from uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, block := range t.seen {
		if block < from {
			delete(t.seen, id)
		}
	}
}
