// Package sync implements the incremental synchronization engine: the
// paginated fetch loop, the upsert reconcilers for externally sourced
// reference entities, and the idempotent candle/trends persistence model.
package sync

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRange is returned before any I/O when from >= to.
	ErrInvalidRange = errors.New("from must be before to")
	// ErrUnsupportedTimeframe is returned when a provider cannot serve the
	// requested timeframe.
	ErrUnsupportedTimeframe = errors.New("timeframe not supported by provider")
)

// PlatformSnapshot identifies the chain a token is issued on, as reported
// by the aggregator.
type PlatformSnapshot struct {
	Name   string
	Symbol string
}

// CurrencySnapshot is one externally reported currency. Kind is the
// classification the source asserts; empty means the source cannot
// classify it and the record is created as unknown.
type CurrencySnapshot struct {
	Symbol     string
	Kind       string
	Name       string
	Slug       string
	ExternalID string
	Rank       *int
	Tags       []string
	Platform   *PlatformSnapshot
	SourcedAt  *time.Time
}

// ExchangeSnapshot is one externally reported exchange listing.
type ExchangeSnapshot struct {
	Slug       string
	Name       string
	ExternalID string
	Rank       *int
	Countries  []string
	Fiats      []string
	SourcedAt  *time.Time
}

// MarketSnapshot is one (base, quote) pair listed on an exchange.
type MarketSnapshot struct {
	BaseSymbol  string
	QuoteSymbol string
	FeeCategory string
}
