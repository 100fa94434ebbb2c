// Package exchange provides clients for exchange market data: a cursor-based
// REST client for historical bars and a WebSocket client for live candles.
package exchange

import (
	"context"
	"time"
)

// Bar is one OHLCV bar. HighTime and LowTime are only set by providers that
// report them.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	HighTime *time.Time
	LowTime  *time.Time
}

// BarClient fetches bars from a since-cursor. Implementations return
// zero-or-more bars in ascending time order with no end bound; the caller
// truncates at its requested upper bound.
type BarClient interface {
	FetchBars(ctx context.Context, symbol, timeframeLabel string, since time.Time) ([]Bar, error)
}
