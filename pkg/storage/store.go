package storage

import (
	"context"
	"time"
)

// Finder methods return (nil, nil) when no row matches; errors are reserved
// for failed queries.

// ReferenceStore covers timeframes, sources, currencies and the
// supplementary currency metadata (tags, platforms, countries).
type ReferenceStore interface {
	EnsureTimeframe(ctx context.Context, unit string, amount int, label string) (*Timeframe, error)
	FindTimeframeByLabel(ctx context.Context, label string) (*Timeframe, error)
	EnsureSource(ctx context.Context, name, kind string, parentID *uint) (*Source, error)

	FindCurrencyBySymbol(ctx context.Context, symbol string, kinds ...string) (*Currency, error)
	CreateCurrency(ctx context.Context, c *Currency) error
	SaveCurrency(ctx context.Context, c *Currency) error

	EnsureTag(ctx context.Context, name, slug string) (*Tag, error)
	EnsurePlatform(ctx context.Context, name, symbol string, sourceID uint) (*Platform, error)
	EnsureCountry(ctx context.Context, code, name string) (*Country, error)

	TagLinks(ctx context.Context, currencyID uint) ([]CurrencyTag, error)
	CreateTagLink(ctx context.Context, link *CurrencyTag) error
	SaveTagLink(ctx context.Context, link *CurrencyTag) error
}

// ExchangeStore covers exchanges and their reconciled associations.
type ExchangeStore interface {
	FindExchangeBySlug(ctx context.Context, slug string) (*Exchange, error)
	CreateExchange(ctx context.Context, e *Exchange) error
	SaveExchange(ctx context.Context, e *Exchange) error

	CountryLinks(ctx context.Context, exchangeID uint) ([]ExchangeCountry, error)
	CreateCountryLink(ctx context.Context, link *ExchangeCountry) error
	SaveCountryLink(ctx context.Context, link *ExchangeCountry) error

	CurrencyLinks(ctx context.Context, exchangeID uint) ([]ExchangeCurrency, error)
	CreateCurrencyLink(ctx context.Context, link *ExchangeCurrency) error
	SaveCurrencyLink(ctx context.Context, link *ExchangeCurrency) error

	Markets(ctx context.Context, exchangeID uint) ([]ExchangeMarket, error)
	CreateMarket(ctx context.Context, m *ExchangeMarket) error
	SaveMarket(ctx context.Context, m *ExchangeMarket) error
}

// CandleStore covers OHLCV groups, pulls and candles.
type CandleStore interface {
	EnsureOHLCVGroup(ctx context.Context, sourceID, baseID, quoteID, timeframeID uint) (*OHLCVGroup, error)
	CreatePull(ctx context.Context, p *OHLCVPull) error
	LastPull(ctx context.Context, groupID uint) (*OHLCVPull, error)

	// CandleTimes returns the bucket timestamps of existing candles in the
	// group with from <= bucket <= to, both ends inclusive.
	CandleTimes(ctx context.Context, groupID uint, from, to time.Time) ([]time.Time, error)
	InsertCandles(ctx context.Context, candles []OHLCVCandle) error
}

// TrendsStore covers search-interest groups, pulls, steps and points.
type TrendsStore interface {
	EnsureTrendsGroup(ctx context.Context, sourceID, currencyID, timeframeID uint, geo string, category int) (*TrendsGroup, error)
	CreateTrendsPull(ctx context.Context, p *TrendsPull) error

	// StepsCovering returns the steps of the group at the given granularity
	// whose recorded range matches (from, to) exactly.
	StepsCovering(ctx context.Context, groupID, timeframeID uint, from time.Time, to *time.Time) ([]TrendsStep, error)
	CreateStep(ctx context.Context, s *TrendsStep) error
	SaveStep(ctx context.Context, s *TrendsStep) error
	InsertPoints(ctx context.Context, points []TrendsPoint) error
}

type StrategyStore interface {
	FindStrategyByName(ctx context.Context, name string) (*StrategyRecord, error)
	CreateStrategy(ctx context.Context, s *StrategyRecord) error
	SaveStrategy(ctx context.Context, s *StrategyRecord) error
}

// Store is the full persistence surface the sync engine writes through.
type Store interface {
	ReferenceStore
	ExchangeStore
	CandleStore
	TrendsStore
	StrategyStore
}

// Tx is a Store whose writes are staged until Commit.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// DB is a Store that can open transactions. Each top-level update
// invocation stages its writes in one Tx and commits once at the end.
type DB interface {
	Store
	Begin(ctx context.Context) (Tx, error)
}
