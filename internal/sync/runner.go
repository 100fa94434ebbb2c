package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketsync/config"
	"marketsync/internal/schedule"
	"marketsync/pkg/cache"
	"marketsync/pkg/coinmarket"
	"marketsync/pkg/exchange"
	"marketsync/pkg/storage/postgres"
	"marketsync/pkg/trends"

	"go.uber.org/zap"
)

// Start wires the pipeline: storage, cache, provider clients, the sync
// service and the recurring tasks. Blocks until ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := postgres.InitializeAndMigrate(cfg.Postgres, true)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer db.Close()

	var kv cache.Cache
	kv, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
		kv = cache.NewMemoryCache()
	}
	defer kv.Close()

	restClient := exchange.NewRESTClient(cfg.Exchange.REST.BaseURL, cfg.Exchange.REST.Category,
		cfg.Exchange.REST.Timeout, cfg.Exchange.REST.ReqPerSec)
	marketClient := coinmarket.NewClient(cfg.Market.BaseURL, cfg.Market.APIKey,
		cfg.Market.Timeout, cfg.Market.ReqPerSec)
	trendsClient := trends.NewClient(cfg.Trends.BaseURL, cfg.Trends.Timeout, cfg.Trends.ReqPerSec)

	svc := NewService(db, NewRefCache(kv), restClient, marketClient, trendsClient,
		cfg.Market.ListingLimit, logger)
	if err := svc.Init(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap reference data: %w", err)
	}

	sched := schedule.New(logger)
	registerTasks(sched, svc, cfg)
	sched.Start(ctx)

	if cfg.Exchange.WS.Enabled {
		if err := startStream(cfg, svc, logger); err != nil {
			return fmt.Errorf("failed to start live stream: %w", err)
		}
	}

	<-ctx.Done()
	return nil
}

func registerTasks(sched *schedule.Scheduler, svc *Service, cfg *config.Config) {
	backfill := cfg.Sync.Backfill
	if backfill <= 0 {
		backfill = 24 * time.Hour
	}
	interval := cfg.Sync.CandleInterval
	if interval <= 0 {
		interval = time.Hour
	}

	for _, pair := range cfg.Sync.Pairs {
		pair := pair
		sched.Add(schedule.Task{
			Name:     fmt.Sprintf("candles %s%s %s", pair.Base, pair.Quote, pair.Timeframe),
			Interval: interval,
			Run: func(ctx context.Context) error {
				to := time.Now().UTC()
				_, err := svc.SyncCandles(ctx, pair.Base, pair.Quote, pair.Timeframe, to.Add(-backfill), to)
				return err
			},
		})
	}

	if cfg.Sync.ListingsDaily {
		sched.Add(schedule.Task{
			Name:          "currency listings",
			Interval:      24 * time.Hour,
			AlignMidnight: true,
			Run: func(ctx context.Context) error {
				_, err := svc.SyncCurrencies(ctx)
				return err
			},
		})
		sched.Add(schedule.Task{
			Name:          "exchange listings",
			Interval:      24 * time.Hour,
			AlignMidnight: true,
			Run: func(ctx context.Context) error {
				_, err := svc.SyncExchanges(ctx, cfg.Sync.WithMarkets)
				return err
			},
		})
	}
}

// startStream subscribes to live kline topics for the configured pairs and
// stores confirmed bars through the same dedup path as backfills.
func startStream(cfg *config.Config, svc *Service, logger *zap.Logger) error {
	pairs := pairIndex(cfg.Sync.Pairs)
	var topics []string
	for _, pair := range cfg.Sync.Pairs {
		topic, err := exchange.Topic(strings.ToUpper(pair.Base+pair.Quote), pair.Timeframe)
		if err != nil {
			return err
		}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return nil
	}

	ws := exchange.NewStreamClient(cfg.Exchange.WS.URL, logger)
	ws.SetBarHandler(func(symbol, tfLabel string, bar exchange.Bar, confirmed bool) {
		if !confirmed {
			return
		}
		pair, ok := pairs[strings.ToUpper(symbol)]
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.StoreBar(ctx, pair.Base, pair.Quote, tfLabel, bar); err != nil {
			logger.Warn("failed to store live bar",
				zap.String("symbol", symbol), zap.Error(err))
		}
	})

	if err := ws.Connect(topics); err != nil {
		return err
	}
	go ws.Listen()
	return nil
}

// pairIndex keys the configured pairs by their uppercased stream symbol,
// matching the casing the exchange reports regardless of how the config
// spells them.
func pairIndex(pairs []config.PairConfig) map[string]config.PairConfig {
	idx := make(map[string]config.PairConfig, len(pairs))
	for _, pair := range pairs {
		idx[strings.ToUpper(pair.Base+pair.Quote)] = pair
	}
	return idx
}
