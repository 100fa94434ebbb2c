// Package storage defines the persisted entities and the store interfaces
// consumed by the sync engine. Concrete backends live in the postgres and
// memstore subpackages.
package storage

import "time"

// Currency kinds. Unknown records may later be promoted to a concrete kind
// in place, keeping their primary key.
const (
	CurrencyKindCrypto  = "cryptocurrency"
	CurrencyKindFiat    = "fiat"
	CurrencyKindUnknown = "unknown"
)

// Source kinds.
const (
	SourceKindAggregator = "aggregator"
	SourceKindExchange   = "exchange"
	SourceKindRegistry   = "registry"
	SourceKindTrends     = "trends"
)

// Timeframe is immutable reference data created once at bootstrap.
type Timeframe struct {
	ID     uint   `gorm:"primaryKey"`
	Unit   string `gorm:"type:varchar(10);not null;index:idx_timeframe_unit_amount,unique"`
	Amount int    `gorm:"not null;index:idx_timeframe_unit_amount,unique"`
	Label  string `gorm:"type:varchar(10);not null;uniqueIndex:idx_timeframe_label"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Timeframe) TableName() string { return "timeframe" }

// Source is an external data provider. Some sources are attributed to a
// parent source (e.g. an exchange listed by an aggregator).
type Source struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"type:text;not null;index:idx_source_name_kind,unique"`
	Kind     string `gorm:"type:varchar(20);not null;index:idx_source_name_kind,unique"`
	ParentID *uint  `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Source) TableName() string { return "source" }

// Currency is a tradable or reference asset keyed by (symbol, kind).
type Currency struct {
	ID         uint   `gorm:"primaryKey"`
	Symbol     string `gorm:"type:varchar(30);not null;index:idx_currency_symbol_kind,unique"`
	Kind       string `gorm:"type:varchar(20);not null;index:idx_currency_symbol_kind,unique"`
	Name       string `gorm:"type:text"`
	Slug       string `gorm:"type:text;index"`
	ExternalID string `gorm:"type:varchar(40);index"`

	SourceID   uint  `gorm:"not null"`
	PlatformID *uint `gorm:"index"`
	Rank       *int

	LastSourcedAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Currency) TableName() string { return "currency" }

// Platform is the chain a token is issued on (e.g. an ERC-20 token's chain).
type Platform struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"type:text;not null;uniqueIndex:idx_platform_name"`
	Symbol   string `gorm:"type:varchar(30)"`
	SourceID uint   `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Platform) TableName() string { return "platform" }

type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex:idx_tag_name"`
	Slug string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Tag) TableName() string { return "tag" }

// CurrencyTag links a currency to a tag. A tag missing from the latest
// external snapshot is deactivated, never deleted.
type CurrencyTag struct {
	ID         uint `gorm:"primaryKey"`
	CurrencyID uint `gorm:"not null;index:idx_currency_tag,unique"`
	TagID      uint `gorm:"not null;index:idx_currency_tag,unique"`
	IsActive   bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CurrencyTag) TableName() string { return "currency_tag" }

type Country struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"type:varchar(2);not null;uniqueIndex:idx_country_code"`
	Name string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Country) TableName() string { return "country" }

type Exchange struct {
	ID         uint   `gorm:"primaryKey"`
	Slug       string `gorm:"type:text;not null;uniqueIndex:idx_exchange_slug"`
	Name       string `gorm:"type:text"`
	ExternalID string `gorm:"type:varchar(40);index"`
	SourceID   uint   `gorm:"not null"`
	Rank       *int

	LastSourcedAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Exchange) TableName() string { return "exchange" }

type ExchangeCountry struct {
	ID         uint `gorm:"primaryKey"`
	ExchangeID uint `gorm:"not null;index:idx_exchange_country,unique"`
	CountryID  uint `gorm:"not null;index:idx_exchange_country,unique"`
	IsActive   bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ExchangeCountry) TableName() string { return "exchange_country" }

// ExchangeCurrency records that an exchange supports deposits and trading
// of a currency.
type ExchangeCurrency struct {
	ID         uint `gorm:"primaryKey"`
	ExchangeID uint `gorm:"not null;index:idx_exchange_currency,unique"`
	CurrencyID uint `gorm:"not null;index:idx_exchange_currency,unique"`
	IsActive   bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ExchangeCurrency) TableName() string { return "exchange_currency" }

// ExchangeMarket is one (exchange, base, quote, fee category) listing.
type ExchangeMarket struct {
	ID          uint   `gorm:"primaryKey"`
	ExchangeID  uint   `gorm:"not null;index:idx_exchange_market,unique"`
	BaseID      uint   `gorm:"not null;index:idx_exchange_market,unique"`
	QuoteID     uint   `gorm:"not null;index:idx_exchange_market,unique"`
	FeeCategory string `gorm:"type:varchar(20);not null;index:idx_exchange_market,unique"`
	IsActive    bool   `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ExchangeMarket) TableName() string { return "exchange_market" }

// OHLCVGroup files every pull and candle for one (source, base, quote,
// timeframe) combination. Created lazily on first pull.
type OHLCVGroup struct {
	ID          uint `gorm:"primaryKey"`
	SourceID    uint `gorm:"not null;index:idx_ohlcv_group,unique"`
	BaseID      uint `gorm:"not null;index:idx_ohlcv_group,unique"`
	QuoteID     uint `gorm:"not null;index:idx_ohlcv_group,unique"`
	TimeframeID uint `gorm:"not null;index:idx_ohlcv_group,unique"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OHLCVGroup) TableName() string { return "ohlcv_group" }

// OHLCVPull records one invocation's requested [from, to) range. Pulls are
// an append-only audit trail.
type OHLCVPull struct {
	ID       uint      `gorm:"primaryKey"`
	GroupID  uint      `gorm:"not null;index:idx_ohlcv_pull_group"`
	FromTime time.Time `gorm:"not null"`
	ToTime   time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OHLCVPull) TableName() string { return "ohlcv_pull" }

// OHLCVCandle is one timeframe-bucketed bar. Bucket uniqueness within a
// group is enforced logically at insert time, not by a table constraint.
type OHLCVCandle struct {
	ID         uint      `gorm:"primaryKey"`
	PullID     uint      `gorm:"not null;index:idx_ohlcv_candle_pull"`
	GroupID    uint      `gorm:"not null;index:idx_ohlcv_candle_group_bucket"`
	BucketTime time.Time `gorm:"not null;index:idx_ohlcv_candle_group_bucket"`

	Open   float64 `gorm:"type:numeric;not null"`
	High   float64 `gorm:"type:numeric;not null"`
	Low    float64 `gorm:"type:numeric;not null"`
	Close  float64 `gorm:"type:numeric;not null"`
	Volume float64 `gorm:"type:numeric;not null"`

	HighTime *time.Time
	LowTime  *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OHLCVCandle) TableName() string { return "ohlcv_candle" }

// TrendsGroup files search-interest pulls for one (source, currency,
// timeframe, geo, category) combination.
type TrendsGroup struct {
	ID          uint   `gorm:"primaryKey"`
	SourceID    uint   `gorm:"not null;index:idx_trends_group,unique"`
	CurrencyID  uint   `gorm:"not null;index:idx_trends_group,unique"`
	TimeframeID uint   `gorm:"not null;index:idx_trends_group,unique"`
	Geo         string `gorm:"type:varchar(4);not null;index:idx_trends_group,unique"`
	Category    int    `gorm:"not null;index:idx_trends_group,unique"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TrendsGroup) TableName() string { return "trends_group" }

// TrendsPull records one logical update's requested range. ToTime is nil
// for the open-ended all-time range.
type TrendsPull struct {
	ID       uint      `gorm:"primaryKey"`
	GroupID  uint      `gorm:"not null;index:idx_trends_pull_group"`
	FromTime time.Time `gorm:"not null"`
	ToTime   *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TrendsPull) TableName() string { return "trends_pull" }

// TrendsStep is one provider call at one granularity within a pull. A step
// may be superseded by a later, more complete step over the same window.
type TrendsStep struct {
	ID          uint      `gorm:"primaryKey"`
	PullID      uint      `gorm:"not null;index:idx_trends_step_pull"`
	GroupID     uint      `gorm:"not null;index:idx_trends_step_group"`
	TimeframeID uint      `gorm:"not null"`
	FromTime    time.Time `gorm:"not null"`
	ToTime      *time.Time
	IsCurrent   bool `gorm:"not null"`
	IsPartial   bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (TrendsStep) TableName() string { return "trends_step" }

// TrendsPoint is one search-interest datum. IsPartial marks a provisional
// value the provider may still revise.
type TrendsPoint struct {
	ID        uint      `gorm:"primaryKey"`
	StepID    uint      `gorm:"not null;index:idx_trends_point_step"`
	Time      time.Time `gorm:"not null"`
	Value     int       `gorm:"not null"`
	IsPartial bool      `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TrendsPoint) TableName() string { return "trends_point" }

// StrategyRecord pins a trading strategy's registered version and content
// checksum so a changed implementation cannot silently replay under an old
// registration.
type StrategyRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"type:text;not null;uniqueIndex:idx_strategy_name"`
	Version  string `gorm:"type:varchar(40);not null"`
	Checksum string `gorm:"type:varchar(64);not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (StrategyRecord) TableName() string { return "strategy" }
