package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"launchpad/internal/contracts"
	"launchpad/internal/model"
	"launchpad/internal/observability"
	"launchpad/internal/storage"
	"launchpad/internal/trades"
)

var (
	testPool   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTrader = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeReader struct {
	mu        sync.Mutex
	latest    uint64
	logs      []types.Log
	filterErr error
	calls     []BlockRange
}

func (f *fakeReader) LatestBlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeReader) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1700000000 + number, nil
}

func (f *fakeReader) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, BlockRange{From: from, To: to})
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if len(addresses) > 0 && log.Address != addresses[0] {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (f *fakeReader) add(logs ...types.Log) {
	f.mu.Lock()
	f.logs = append(f.logs, logs...)
	f.mu.Unlock()
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]model.Trade
	err     error
}

func (s *recordingSink) PutTrades(_ context.Context, batch []model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]model.Trade(nil), batch...))
	return nil
}

func tradeLog(t *testing.T, event string, block uint64, index uint, tx byte, values ...int64) types.Log {
	t.Helper()
	poolABI, err := contracts.BondingPoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	args := make([]interface{}, 0, len(values))
	for _, v := range values {
		args = append(args, big.NewInt(v))
	}
	data, err := poolABI.Events[event].Inputs.NonIndexed().Pack(args...)
	if err != nil {
		t.Fatalf("pack %s: %v", event, err)
	}
	return types.Log{
		Address:     testPool,
		Topics:      []common.Hash{poolABI.Events[event].ID, common.BytesToHash(testTrader.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{tx}),
		Index:       index,
	}
}

func newTestTracker(t *testing.T, reader *fakeReader, sink *recordingSink, metrics *observability.Metrics) *Tracker {
	t.Helper()
	decoder, err := trades.NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	var tradeSink storage.TradeSink
	if sink != nil {
		tradeSink = sink
	}
	tracker, err := NewTracker(TrackerConfig{
		ChainID:      33101,
		Pool:         testPool,
		WindowBlocks: 50,
		BatchSize:    20,
		Retry:        RetryPolicy{MaxRetries: 1, Backoff: 1},
	}, reader, decoder, tradeSink, nil, metrics)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker
}

func TestTrackerPollSnapshotAndSink(t *testing.T) {
	reader := &fakeReader{latest: 100}
	malformed := tradeLog(t, "Buy", 95, 0, 9, 1, 1, 1, 1)
	malformed.Topics = malformed.Topics[:1]
	reader.add(
		tradeLog(t, "Buy", 90, 0, 1, 1000, 34000, 10, 29),
		tradeLog(t, "Sell", 90, 2, 2, 500, 14, 1, 28),
		tradeLog(t, "Buy", 97, 1, 3, 2000, 60000, 20, 31),
		malformed,
	)
	sink := &recordingSink{}
	metrics := observability.NewMetrics("test")
	tracker := newTestTracker(t, reader, sink, metrics)

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	snap := tracker.Trades()
	if len(snap) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(snap))
	}
	if snap[0].BlockNumber != 97 || snap[1].LogIndex != 2 || snap[2].LogIndex != 0 {
		t.Fatalf("unexpected order: %+v", snap)
	}
	if snap[1].Kind != model.TradeSell || snap[1].ZilAmount != "14" || snap[1].TokenAmount != "500" {
		t.Fatalf("unexpected sell: %+v", snap[1])
	}
	if snap[0].Timestamp != 1700000097 || snap[0].ChainID != 33101 {
		t.Fatalf("unexpected metadata: %+v", snap[0])
	}

	if len(sink.batches) != 1 || len(sink.batches[0]) != 3 {
		t.Fatalf("unexpected sink batches: %+v", sink.batches)
	}
	if sink.batches[0][0].BlockNumber != 90 || sink.batches[0][0].LogIndex != 0 {
		t.Fatalf("sink batch should be oldest first: %+v", sink.batches[0])
	}
	if got := testutil.ToFloat64(metrics.TradesMalformed); got != 1 {
		t.Fatalf("expected 1 malformed, got %v", got)
	}

	// Next poll only forwards the new trade.
	reader.add(tradeLog(t, "Sell", 101, 0, 4, 100, 3, 0, 30))
	reader.mu.Lock()
	reader.latest = 101
	reader.mu.Unlock()

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(sink.batches) != 2 || len(sink.batches[1]) != 1 || sink.batches[1][0].BlockNumber != 101 {
		t.Fatalf("unexpected second batch: %+v", sink.batches)
	}
	if got := tracker.Trades(); len(got) != 4 || got[0].BlockNumber != 101 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestTrackerPollWindowRanges(t *testing.T) {
	reader := &fakeReader{latest: 100}
	tracker := newTestTracker(t, reader, nil, nil)

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	want := []BlockRange{{From: 51, To: 70}, {From: 71, To: 90}, {From: 91, To: 100}}
	if len(reader.calls) != len(want) {
		t.Fatalf("calls mismatch: %+v", reader.calls)
	}
	for i := range want {
		if reader.calls[i] != want[i] {
			t.Fatalf("calls mismatch: %+v != %+v", reader.calls, want)
		}
	}
}

func TestTrackerPollShortChain(t *testing.T) {
	reader := &fakeReader{latest: 10}
	tracker := newTestTracker(t, reader, nil, nil)
	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(reader.calls) != 1 || reader.calls[0] != (BlockRange{From: 0, To: 10}) {
		t.Fatalf("unexpected calls: %+v", reader.calls)
	}
}

func TestTrackerPollReadErrorKeepsSnapshot(t *testing.T) {
	reader := &fakeReader{latest: 100}
	reader.add(tradeLog(t, "Buy", 99, 0, 1, 1000, 34000, 10, 29))
	tracker := newTestTracker(t, reader, nil, nil)

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	reader.mu.Lock()
	reader.filterErr = errors.New("rpc down")
	reader.calls = nil
	reader.mu.Unlock()

	if err := tracker.Poll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	// One try plus one retry on the first batch.
	if len(reader.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(reader.calls))
	}
	if got := tracker.Trades(); len(got) != 1 {
		t.Fatalf("snapshot should survive a failed poll: %+v", got)
	}
}

func TestTrackerSinkErrorRedelivers(t *testing.T) {
	reader := &fakeReader{latest: 100}
	reader.add(tradeLog(t, "Buy", 99, 0, 1, 1000, 34000, 10, 29))
	sink := &recordingSink{err: errors.New("disk full")}
	tracker := newTestTracker(t, reader, sink, nil)

	if err := tracker.Poll(context.Background()); err == nil {
		t.Fatalf("expected sink error")
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 1 {
		t.Fatalf("trade should be redelivered: %+v", sink.batches)
	}
}

func TestTrackerCancelledPollDiscardsResult(t *testing.T) {
	reader := &fakeReader{latest: 100}
	reader.add(tradeLog(t, "Buy", 99, 0, 1, 1000, 34000, 10, 29))
	tracker := newTestTracker(t, reader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tracker.Poll(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if got := tracker.Trades(); len(got) != 0 {
		t.Fatalf("cancelled poll must not publish: %+v", got)
	}
}

func TestNewTrackerValidates(t *testing.T) {
	decoder, err := trades.NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	if _, err := NewTracker(TrackerConfig{Pool: testPool}, nil, decoder, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil reader")
	}
	if _, err := NewTracker(TrackerConfig{}, &fakeReader{}, decoder, nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing pool")
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0x1111111111111111111111111111111111111111 ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != testPool {
		t.Fatalf("unexpected addresses: %+v", got)
	}
	if _, err := ParseAddresses([]string{"nope"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func (t *Tracker) seenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

func TestTrackerForgetsTradesBehindWindow(t *testing.T) {
	reader := &fakeReader{latest: 100}
	reader.add(
		tradeLog(t, "Buy", 60, 0, 1, 1000, 34000, 10, 29),
		tradeLog(t, "Buy", 99, 0, 2, 1000, 34000, 10, 29),
	)
	sink := &recordingSink{}
	tracker := newTestTracker(t, reader, sink, nil)

	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got := tracker.seenCount(); got != 2 {
		t.Fatalf("expected 2 seen trades, got %d", got)
	}

	// Window is now 71-120: block 60 leaves, block 99 stays.
	reader.mu.Lock()
	reader.latest = 120
	reader.mu.Unlock()
	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got := tracker.seenCount(); got != 1 {
		t.Fatalf("expected 1 seen trade after the window moved, got %d", got)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("no trade should be redelivered: %+v", sink.batches)
	}

	reader.mu.Lock()
	reader.latest = 500
	reader.mu.Unlock()
	if err := tracker.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got := tracker.seenCount(); got != 0 {
		t.Fatalf("expected empty seen set, got %d", got)
	}
}

func TestTrackerCountsRedeliveredTradesOnce(t *testing.T) {
	reader := &fakeReader{latest: 100}
	reader.add(tradeLog(t, "Buy", 99, 0, 1, 1000, 34000, 10, 29))
	sink := &recordingSink{err: errors.New("disk full")}
	metrics := observability.NewMetrics("test")
	tracker := newTestTracker(t, reader, sink, metrics)

	for i := 0; i < 3; i++ {
		if err := tracker.Poll(context.Background()); err == nil {
			t.Fatalf("expected sink error")
		}
	}
	buys := metrics.TradesDecoded.WithLabelValues(string(model.TradeBuy))
	if got := testutil.ToFloat64(buys); got != 0 {
		t.Fatalf("failed writes must not be counted, got %v", got)
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	for i := 0; i < 2; i++ {
		if err := tracker.Poll(context.Background()); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	if got := testutil.ToFloat64(buys); got != 1 {
		t.Fatalf("expected the trade counted once, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.TradesStored); got != 1 {
		t.Fatalf("expected 1 stored, got %v", got)
	}
}

type gatedReader struct {
	*fakeReader
	started chan struct{}
	release chan struct{}
}

func (g *gatedReader) FilterLogs(ctx context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	close(g.started)
	<-g.release
	return g.fakeReader.FilterLogs(ctx, from, to, addresses, topic0)
}

func TestTrackerDiscardDropsInFlightPoll(t *testing.T) {
	inner := &fakeReader{latest: 10}
	inner.add(tradeLog(t, "Buy", 9, 0, 1, 1000, 34000, 10, 29))
	reader := &gatedReader{fakeReader: inner, started: make(chan struct{}), release: make(chan struct{})}

	decoder, err := trades.NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	sink := &recordingSink{}
	tracker, err := NewTracker(TrackerConfig{ChainID: 33101, Pool: testPool, WindowBlocks: 50, BatchSize: 50}, reader, decoder, sink, nil, nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- tracker.Poll(context.Background()) }()
	<-reader.started
	tracker.Discard()
	close(reader.release)

	if err := <-done; err != nil {
		t.Fatalf("poll: %v", err)
	}
	if got := tracker.Trades(); len(got) != 0 {
		t.Fatalf("discarded poll must not publish: %+v", got)
	}
	if len(sink.batches) != 0 {
		t.Fatalf("discarded poll must not write: %+v", sink.batches)
	}
}
