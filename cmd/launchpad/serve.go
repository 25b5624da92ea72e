package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchpad/internal/config"
	"launchpad/internal/indexer"
	"launchpad/internal/metadata"
	"launchpad/internal/network"
	"launchpad/internal/observability"
	"launchpad/internal/poller"
	"launchpad/internal/storage"
	"launchpad/internal/storage/memory"
	"launchpad/internal/storage/postgres"
	"launchpad/internal/trades"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metadata and trade history API with trade trackers",
		RunE:  runServe,
	}
	addChainFlags(cmd)
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("public-url", "http://localhost:8080", "public base URL for metadata and image links")
	cmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins (default any)")
	cmd.Flags().Int64("max-image-bytes", metadata.DefaultMaxImageBytes, "max image upload size")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Bool("use-memory", false, "keep metadata, images and trades in memory")
	cmd.Flags().StringSlice("pool", nil, "bonding-curve pools to track (comma-separated)")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "trade poll interval")
	cmd.Flags().Uint64("window-blocks", indexer.DefaultWindowBlocks, "trailing block window per poll")
	cmd.Flags().Uint64("batch-size", indexer.DefaultBatchSize, "blocks per eth_getLogs call")
	cmd.Flags().Uint("max-retries", 3, "retries per RPC read")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("trades-out", "", "also append tracked trades to this JSONL file")
	return cmd
}

type stores struct {
	meta   storage.MetadataStore
	images storage.ImageStore
	trades storage.TradeStore
	close  func()
}

func openStores(ctx context.Context, cfg config.ServeConfig, logger *zap.Logger) (stores, error) {
	if cfg.UseMemory {
		logger.Warn("using in-memory storage; data is lost on exit")
		return stores{
			meta:   memory.NewMetadataStore(),
			images: memory.NewImageStore(),
			trades: memory.NewTradeStore(),
			close:  func() {},
		}, nil
	}
	if cfg.PGDSN == "" {
		return stores{}, fmt.Errorf("pg dsn is required (or --use-memory)")
	}
	pg, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return stores{}, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return stores{}, err
	}
	return stores{meta: pg, images: pg, trades: pg, close: pg.Close}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadServe(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := indexer.ParseAddresses(cfg.Pools)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	_, net, err := openNetwork(cfg.Chain, logger)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	metrics := observability.NewMetrics("")
	server := metadata.NewServer(metadata.Config{
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxImageBytes:  cfg.MaxImageBytes,
		ChainID:        net.ChainID,
	}, st.meta, st.images, st.trades, logger.Named("api"), metrics)

	logger.Info("serve start",
		zap.String("network", net.Name),
		zap.Uint64("chain_id", net.ChainID),
		zap.String("listen", cfg.Listen),
		zap.Bool("memory", cfg.UseMemory),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("pools", len(pools)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.Listen)
	})

	if len(pools) > 0 {
		var sink storage.TradeSink = st.trades
		if cfg.TradesOut != "" {
			sink = storage.MultiSink{st.trades, storage.NewJSONLTradeSink(cfg.TradesOut)}
		}
		registry, trackers, err := startTrackers(gctx, cfg, net, pools, sink, logger, metrics)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			for _, tracker := range trackers {
				tracker.Discard()
			}
			registry.StopAll()
			return nil
		})
	}

	return g.Wait()
}

func startTrackers(ctx context.Context, cfg config.ServeConfig, net network.Network, pools []common.Address, sink storage.TradeSink, logger *zap.Logger, metrics *observability.Metrics) (*poller.Registry, []*indexer.Tracker, error) {
	client, err := dialNetwork(ctx, net, logger)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		<-ctx.Done()
		client.Close()
	}()

	decoder, err := trades.NewDecoder()
	if err != nil {
		return nil, nil, err
	}

	registry := poller.NewRegistry(poller.WithLogger(logger.Named("poller")), poller.WithMetrics(metrics))
	trackers := make([]*indexer.Tracker, 0, len(pools))
	for _, pool := range pools {
		tracker, err := indexer.NewTracker(indexer.TrackerConfig{
			ChainID:      net.ChainID,
			Pool:         pool,
			WindowBlocks: cfg.WindowBlocks,
			BatchSize:    cfg.BatchSize,
			Retry:        indexer.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff},
		}, client, decoder, sink, logger.Named("tracker"), metrics)
		if err != nil {
			registry.StopAll()
			return nil, nil, err
		}
		if _, started, err := registry.Ensure(ctx, tracker.Key(), cfg.PollInterval, tracker.Poll); err != nil {
			registry.StopAll()
			return nil, nil, err
		} else if !started {
			logger.Warn("duplicate pool ignored", zap.String("pool", pool.Hex()))
			continue
		}
		trackers = append(trackers, tracker)
	}
	return registry, trackers, nil
}
