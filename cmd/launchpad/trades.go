package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/aggregate"
	"launchpad/internal/amount"
	"launchpad/internal/config"
	"launchpad/internal/contracts"
	"launchpad/internal/indexer"
	"launchpad/internal/model"
	"launchpad/internal/poller"
	"launchpad/internal/storage"
	"launchpad/internal/storage/postgres"
	"launchpad/internal/trades"
)

func newTradesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show recent bonding-curve trades for a pool",
		RunE:  runTrades,
	}
	addChainFlags(cmd)
	cmd.Flags().String("pool", "", "bonding-curve pool address")
	cmd.Flags().Uint64("window-blocks", indexer.DefaultWindowBlocks, "trailing block window to scan")
	cmd.Flags().Uint64("batch-size", indexer.DefaultBatchSize, "blocks per eth_getLogs call")
	cmd.Flags().Int("limit", 50, "max trades to print (0 prints all)")
	cmd.Flags().String("out", "", "append new trades to this JSONL file")
	cmd.Flags().Bool("watch", false, "keep polling until interrupted")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "poll interval with --watch")
	cmd.Flags().Uint("max-retries", 3, "retries per RPC read")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a raw log JSONL file into trades",
		RunE:  runDecode,
	}
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/trades.jsonl", "output trades JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "malformed logs JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate a trades JSONL file into per-pool windows",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "", "input trades JSONL")
	aggregateCmd.Flags().String("window", "1h", "aggregation window (e.g. 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(decodeCmd, aggregateCmd)
	return cmd
}

func runTrades(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadTrades(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := indexer.ParseAddresses([]string{cfg.Pool})
	if err != nil {
		return err
	}
	if len(pools) != 1 {
		return fmt.Errorf("pool address is required")
	}

	ctx, stop := signalContext()
	defer stop()

	_, net, err := openNetwork(cfg.Chain, logger)
	if err != nil {
		return err
	}
	client, err := dialNetwork(ctx, net, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	decoder, err := trades.NewDecoder()
	if err != nil {
		return err
	}

	var sink storage.TradeSink
	if cfg.Out != "" {
		sink = storage.NewJSONLTradeSink(cfg.Out)
	}

	tracker, err := indexer.NewTracker(indexer.TrackerConfig{
		ChainID:      net.ChainID,
		Pool:         pools[0],
		WindowBlocks: cfg.WindowBlocks,
		BatchSize:    cfg.BatchSize,
		Retry:        indexer.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff},
	}, client, decoder, sink, logger, nil)
	if err != nil {
		return err
	}

	tokens := contracts.NewTokenMetaCache()
	poolDecimals := func(ctx context.Context) uint8 {
		meta, ok := loadPoolToken(ctx, client, tokens, pools[0], logger)
		if !ok {
			return tokenDecimals
		}
		return meta.Decimals
	}

	if !cfg.Watch {
		if err := tracker.Poll(ctx); err != nil {
			return err
		}
		printTrades(tracker.Trades(), cfg.Limit, poolDecimals(ctx))
		return nil
	}

	printed := make(map[string]struct{})
	task := poller.NewTask(tracker.Key(), cfg.PollInterval, func(ctx context.Context) error {
		if err := tracker.Poll(ctx); err != nil {
			return err
		}
		fresh := make([]model.Trade, 0)
		for _, t := range tracker.Trades() {
			if _, ok := printed[t.ID()]; ok {
				continue
			}
			printed[t.ID()] = struct{}{}
			fresh = append(fresh, t)
		}
		if len(fresh) > 0 {
			printTrades(fresh, 0, poolDecimals(ctx))
		}
		return nil
	}, poller.WithLogger(logger))

	if err := task.Start(ctx); err != nil {
		return err
	}
	logger.Info("watching trades", zap.String("pool", pools[0].Hex()), zap.Duration("interval", cfg.PollInterval))
	<-ctx.Done()
	tracker.Discard()
	task.Stop()
	return nil
}

func printTrades(list []model.Trade, limit int, decimals uint8) {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tTIME\tKIND\tTRADER\tZIL\tTOKENS\tTX")
	for _, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.BlockNumber,
			time.Unix(int64(t.Timestamp), 0).UTC().Format(time.RFC3339),
			t.Kind,
			shortHex(t.Trader),
			formatBaseUnits(t.ZilAmount, 18),
			formatBaseUnits(t.TokenAmount, decimals),
			shortHex(t.TxHash),
		)
	}
	_ = w.Flush()
}

func formatBaseUnits(value string, decimals uint8) string {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return placeholder
	}
	return amount.Format(n, decimals)
}

func shortHex(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadDecode(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	decoder, err := trades.NewDecoder()
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := newJSONLWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start", zap.String("in", cfg.In), zap.String("out", cfg.Out), zap.String("errors", cfg.Errors))

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var records []model.LogRecord
	var total, unreadable int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			unreadable++
			logger.Warn("skip unreadable line", zap.Int("line", total), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	var malformed int
	decoded := decoder.DecodeAll(records, func(f model.DecodeFailure) {
		malformed++
		_ = errWriter.Write(f)
	})
	skipped := len(records) - len(decoded) - malformed
	decoded = trades.Dedupe(decoded)
	trades.SortNewestFirst(decoded)
	for _, t := range decoded {
		if err := outWriter.Write(t); err != nil {
			return err
		}
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", len(decoded)),
		zap.Int("skipped", skipped),
		zap.Int("malformed", malformed),
		zap.Int("unreadable", unreadable),
	)
	return nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAggregate(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var stateStore aggregate.StateStore
	if cfg.StateFile != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.StateFile}
	} else {
		stateStore = &aggregate.NamedStateStore{Store: store, Name: fmt.Sprintf("aggregate:%d", windowSeconds)}
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
	}, store, logger)

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
	)

	return agg.Run(ctx, cfg.Input)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

// poolAddress validates a pool flag.
func poolAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid pool address %q", value)
	}
	return common.HexToAddress(value), nil
}
