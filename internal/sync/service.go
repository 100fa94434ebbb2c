package sync

import (
	"context"
	"fmt"
	"time"

	"marketsync/pkg/coinmarket"
	"marketsync/pkg/exchange"
	"marketsync/pkg/storage"
	"marketsync/pkg/timeframe"
	"marketsync/pkg/trends"

	"go.uber.org/zap"
)

// Source names recorded for ingested data.
const (
	SourceNameExchange   = "bybit"
	SourceNameAggregator = "coinmarket"
	SourceNameTrends     = "gtrends"
)

// Service wires the provider clients, the store and the reference cache
// into the update operations the scheduler invokes. Reconciliation
// operations stage their writes in one transaction committed at the end;
// candle and trends persistence commits per sub-range, so a fetch failure
// aborts the operation but keeps earlier committed progress.
type Service struct {
	db     storage.DB
	refs   *RefCache
	bars   exchange.BarClient
	market *coinmarket.Client
	trends *trends.Client
	log    *zap.Logger

	listingLimit int
}

func NewService(db storage.DB, refs *RefCache, bars exchange.BarClient,
	market *coinmarket.Client, trendsClient *trends.Client,
	listingLimit int, logger *zap.Logger) *Service {
	if listingLimit <= 0 {
		listingLimit = coinmarket.DefaultPageSize
	}
	return &Service{
		db:           db,
		refs:         refs,
		bars:         bars,
		market:       market,
		trends:       trendsClient,
		log:          logger,
		listingLimit: listingLimit,
	}
}

// Init bootstraps reference data. Idempotent.
func (s *Service) Init(ctx context.Context) error {
	return s.refs.Init(ctx, s.db)
}

// SyncCandles fills [from, to) for one (base, quote, timeframe) from the
// exchange client and appends only buckets not already stored.
func (s *Service) SyncCandles(ctx context.Context, baseSymbol, quoteSymbol, tfLabel string, from, to time.Time) (int, error) {
	if !from.Before(to) {
		return 0, ErrInvalidRange
	}
	if !exchange.SupportsTimeframe(tfLabel) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, tfLabel)
	}

	tf, err := timeframe.Parse(tfLabel)
	if err != nil {
		return 0, err
	}
	key, err := s.candleGroupKey(ctx, baseSymbol, quoteSymbol, tfLabel)
	if err != nil {
		return 0, err
	}

	pair := baseSymbol + quoteSymbol
	bars, err := FetchRange(ctx, tf, from, to, func(ctx context.Context, since time.Time) ([]exchange.Bar, error) {
		return s.bars.FetchBars(ctx, pair, tfLabel, since)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch %s %s: %w", pair, tfLabel, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	inserted, err := StoreCandles(ctx, tx, key, from, to, bars)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.log.Info("candles synced",
		zap.String("pair", pair),
		zap.String("timeframe", tfLabel),
		zap.Int("fetched", len(bars)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// StoreBar appends one confirmed live bar, deduplicating against buckets
// already stored.
func (s *Service) StoreBar(ctx context.Context, baseSymbol, quoteSymbol, tfLabel string, b exchange.Bar) error {
	tf, err := timeframe.Parse(tfLabel)
	if err != nil {
		return err
	}
	key, err := s.candleGroupKey(ctx, baseSymbol, quoteSymbol, tfLabel)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := StoreCandles(ctx, tx, key, b.Time, tf.Next(b.Time), []exchange.Bar{b}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SyncDailyHistory fills [from, to) with the aggregator's daily snapshot
// bars for one symbol quoted in convert.
func (s *Service) SyncDailyHistory(ctx context.Context, symbol, convert string, from, to time.Time) (int, error) {
	if !from.Before(to) {
		return 0, ErrInvalidRange
	}

	key, err := s.historyGroupKey(ctx, symbol, convert)
	if err != nil {
		return 0, err
	}

	history, err := s.market.HistoricalBars(ctx, symbol, convert, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch history %s/%s: %w", symbol, convert, err)
	}
	bars := make([]exchange.Bar, 0, len(history))
	for _, h := range history {
		if !h.Time.Before(to) {
			break
		}
		bars = append(bars, exchange.Bar{
			Time:     h.Time,
			Open:     h.Open,
			High:     h.High,
			Low:      h.Low,
			Close:    h.Close,
			Volume:   h.Volume,
			HighTime: h.HighTime,
			LowTime:  h.LowTime,
		})
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	inserted, err := StoreCandles(ctx, tx, key, from, to, bars)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.log.Info("daily history synced",
		zap.String("symbol", symbol),
		zap.String("convert", convert),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// SyncCurrencies reconciles the aggregator's ranked listings against the
// store: new symbols created, unknown records promoted, tag and platform
// associations soft-deactivated when they disappear.
func (s *Service) SyncCurrencies(ctx context.Context) (int, error) {
	listings, err := s.market.CurrencyListings(ctx, 1, s.listingLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch currency listings: %w", err)
	}

	sourceID, err := s.refs.SourceID(ctx, s.db, SourceNameAggregator, storage.SourceKindAggregator)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	rec := newCurrencyReconciler(tx, sourceID)
	for _, listing := range listings {
		if _, err := rec.reconcile(ctx, currencySnapshot(listing)); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.log.Info("currencies reconciled", zap.Int("listings", len(listings)))
	return len(listings), nil
}

// SyncExchanges reconciles the aggregator's exchange listings and, when
// withMarkets is set, each exchange's market pairs.
func (s *Service) SyncExchanges(ctx context.Context, withMarkets bool) (int, error) {
	listings, err := s.market.ExchangeListings(ctx, 1, s.listingLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch exchange listings: %w", err)
	}

	sourceID, err := s.refs.SourceID(ctx, s.db, SourceNameAggregator, storage.SourceKindAggregator)
	if err != nil {
		return 0, err
	}

	for _, listing := range listings {
		var markets []MarketSnapshot
		if withMarkets {
			pairs, err := s.market.MarketPairs(ctx, listing.Slug)
			if err != nil {
				return 0, fmt.Errorf("fetch markets for %q: %w", listing.Slug, err)
			}
			markets = marketSnapshots(pairs)
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return 0, err
		}
		rec := newExchangeReconciler(tx, sourceID)
		if _, err := rec.reconcile(ctx, exchangeSnapshot(listing), markets); err != nil {
			tx.Rollback()
			return 0, err
		}
		if err := tx.Commit(); err != nil {
			return 0, err
		}
	}

	s.log.Info("exchanges reconciled", zap.Int("listings", len(listings)))
	return len(listings), nil
}

// SyncTrends updates search interest for one currency over [from, to).
// Steps commit independently, so a provider failure mid-walk keeps the
// steps already stored.
func (s *Service) SyncTrends(ctx context.Context, currencyID uint, keyword, target, geo string, category int,
	vertical trends.Vertical, from, to time.Time) (int, error) {

	sourceID, err := s.refs.SourceID(ctx, s.db, SourceNameTrends, storage.SourceKindTrends)
	if err != nil {
		return 0, err
	}

	params := TrendsParams{
		SourceID:   sourceID,
		CurrencyID: currencyID,
		Target:     target,
		Keyword:    keyword,
		Vertical:   vertical,
		Geo:        geo,
		Category:   category,
		From:       from,
		To:         to,
	}

	inserted, err := SyncTrends(ctx, s.db, params, func(ctx context.Context, timeframeStr string) (trends.Result, error) {
		return s.trends.BuildQuery([]string{keyword}, timeframeStr, geo, category, vertical).Fetch(ctx)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("trends synced",
		zap.String("keyword", keyword),
		zap.String("target", target),
		zap.Int("points", inserted))
	return inserted, nil
}

func (s *Service) candleGroupKey(ctx context.Context, baseSymbol, quoteSymbol, tfLabel string) (GroupKey, error) {
	sourceID, err := s.refs.SourceID(ctx, s.db, SourceNameExchange, storage.SourceKindExchange)
	if err != nil {
		return GroupKey{}, err
	}
	tfID, err := s.refs.TimeframeID(ctx, s.db, tfLabel)
	if err != nil {
		return GroupKey{}, err
	}
	baseID, err := s.currencyID(ctx, baseSymbol, sourceID)
	if err != nil {
		return GroupKey{}, err
	}
	quoteID, err := s.currencyID(ctx, quoteSymbol, sourceID)
	if err != nil {
		return GroupKey{}, err
	}
	return GroupKey{SourceID: sourceID, BaseID: baseID, QuoteID: quoteID, TimeframeID: tfID}, nil
}

func (s *Service) historyGroupKey(ctx context.Context, symbol, convert string) (GroupKey, error) {
	sourceID, err := s.refs.SourceID(ctx, s.db, SourceNameAggregator, storage.SourceKindAggregator)
	if err != nil {
		return GroupKey{}, err
	}
	tfID, err := s.refs.TimeframeID(ctx, s.db, "1d")
	if err != nil {
		return GroupKey{}, err
	}
	baseID, err := s.currencyID(ctx, symbol, sourceID)
	if err != nil {
		return GroupKey{}, err
	}
	quoteID, err := s.currencyID(ctx, convert, sourceID)
	if err != nil {
		return GroupKey{}, err
	}
	return GroupKey{SourceID: sourceID, BaseID: baseID, QuoteID: quoteID, TimeframeID: tfID}, nil
}

// currencyID resolves a pair symbol, creating it as kind-unknown when the
// store has never seen it.
func (s *Service) currencyID(ctx context.Context, symbol string, sourceID uint) (uint, error) {
	cur, err := s.db.FindCurrencyBySymbol(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if cur != nil {
		return cur.ID, nil
	}
	cur = &storage.Currency{Symbol: symbol, Kind: storage.CurrencyKindUnknown, SourceID: sourceID}
	if err := s.db.CreateCurrency(ctx, cur); err != nil {
		return 0, fmt.Errorf("create currency %q: %w", symbol, err)
	}
	return cur.ID, nil
}

func currencySnapshot(listing coinmarket.CurrencyListing) CurrencySnapshot {
	snap := CurrencySnapshot{
		Symbol:     listing.Symbol,
		Kind:       storage.CurrencyKindCrypto,
		Name:       listing.Name,
		Slug:       listing.Slug,
		ExternalID: listing.ExternalID.String(),
		Rank:       listing.Rank,
		Tags:       listing.Tags,
		SourcedAt:  listing.LastUpdated.Time,
	}
	if listing.Platform != nil {
		snap.Platform = &PlatformSnapshot{Name: listing.Platform.Name, Symbol: listing.Platform.Symbol}
	}
	return snap
}

func exchangeSnapshot(listing coinmarket.ExchangeListing) ExchangeSnapshot {
	return ExchangeSnapshot{
		Slug:       listing.Slug,
		Name:       listing.Name,
		ExternalID: listing.ExternalID.String(),
		Rank:       listing.Rank,
		Countries:  listing.Countries,
		Fiats:      listing.Fiats,
		SourcedAt:  listing.LastUpdated.Time,
	}
}

func marketSnapshots(pairs []coinmarket.MarketListing) []MarketSnapshot {
	out := make([]MarketSnapshot, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, MarketSnapshot{
			BaseSymbol:  p.BaseSymbol,
			QuoteSymbol: p.QuoteSymbol,
			FeeCategory: p.FeeCategory,
		})
	}
	return out
}
