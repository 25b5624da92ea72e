package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"launchpad/internal/amount"
	"launchpad/internal/model"
)

// Launch tokens and ZIL both carry 18 decimals.
const displayDecimals = 18

// WindowStore persists finished trade windows.
type WindowStore interface {
	UpsertTradeWindows(ctx context.Context, windows []model.TradeWindow) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator rolls decoded trades into per-pool time windows.
type Aggregator struct {
	cfg          Config
	store        WindowStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, store WindowStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates a trades JSONL file, as written by the trade sink.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.TradeWindow, 0, a.cfg.BatchSize)
	seen := make(map[string]struct{})
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var trade model.Trade
		if err := json.Unmarshal(line, &trade); err != nil {
			failed++
			a.logger.Warn("decode trade", zap.Error(err))
			continue
		}
		if trade.Timestamp <= startTs {
			skipped++
			continue
		}
		// The sink appends snapshots, so the same trade can appear twice.
		if _, dup := seen[trade.ID()]; dup {
			skipped++
			continue
		}
		seen[trade.ID()] = struct{}{}

		start := windowStart(trade.Timestamp, a.cfg.WindowSeconds)
		key := poolKey(trade.Pool)
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, a.finish(acc))
			windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(trade, start, start+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}

		if err := acc.AddTrade(trade); err != nil {
			failed++
			a.logger.Warn("aggregate trade", zap.Error(err), zap.String("pool", trade.Pool), zap.String("trade", trade.ID()))
			continue
		}
		if trade.Timestamp > maxTs {
			maxTs = trade.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertTradeWindows(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.finish(acc))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertTradeWindows(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) finish(acc *Accumulator) model.TradeWindow {
	return toWindow(acc, a.cfg.WindowSeconds)
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, found, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return last, nil
}

// saveState never checkpoints past the oldest open window, so a rerun
// recomputes any window that was still accumulating.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

// Summarize buckets trades in memory without touching a store. Output is
// ordered by pool, then window start.
func Summarize(trades []model.Trade, windowSeconds uint64) ([]model.TradeWindow, error) {
	if windowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	accs := make(map[string]*Accumulator)
	seen := make(map[string]struct{}, len(trades))
	for _, trade := range trades {
		if _, dup := seen[trade.ID()]; dup {
			continue
		}
		seen[trade.ID()] = struct{}{}

		start := windowStart(trade.Timestamp, windowSeconds)
		key := fmt.Sprintf("%s/%d", poolKey(trade.Pool), start)
		acc := accs[key]
		if acc == nil {
			acc = NewAccumulator(trade, start, start+windowSeconds)
			accs[key] = acc
		}
		if err := acc.AddTrade(trade); err != nil {
			return nil, fmt.Errorf("trade %s: %w", trade.ID(), err)
		}
	}

	out := make([]model.TradeWindow, 0, len(accs))
	for _, acc := range accs {
		out = append(out, toWindow(acc, windowSeconds))
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := poolKey(out[i].PoolAddress), poolKey(out[j].PoolAddress)
		if pi != pj {
			return pi < pj
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out, nil
}

func toWindow(acc *Accumulator, windowSeconds uint64) model.TradeWindow {
	return model.TradeWindow{
		ChainID:        acc.ChainID,
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(windowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		BuyCount:       acc.BuyCount,
		SellCount:      acc.SellCount,
		ZilIn:          amount.FormatFull(acc.ZilIn, displayDecimals),
		ZilOut:         amount.FormatFull(acc.ZilOut, displayDecimals),
		TokensBought:   amount.FormatFull(acc.TokensBought, displayDecimals),
		TokensSold:     amount.FormatFull(acc.TokensSold, displayDecimals),
		Fees:           amount.FormatFull(acc.Fees, displayDecimals),
		OpenPrice:      amount.FormatFull(acc.OpenPrice, displayDecimals),
		ClosePrice:     amount.FormatFull(acc.ClosePrice, displayDecimals),
		FirstBlock:     acc.FirstBlock,
		LastBlock:      acc.LastBlock,
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
