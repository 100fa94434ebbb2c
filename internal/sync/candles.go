package sync

import (
	"context"
	"fmt"
	"time"

	"marketsync/pkg/exchange"
	"marketsync/pkg/storage"
)

// GroupKey identifies the (source, base, quote, timeframe) combination a
// batch of candles is filed under.
type GroupKey struct {
	SourceID    uint
	BaseID      uint
	QuoteID     uint
	TimeframeID uint
}

// StoreCandles resolves the group, records the pull and appends only the
// bars whose bucket timestamp is not already present, either in the store
// within the batch's own [first, last] span or earlier in the batch
// itself. Returns the number of rows inserted.
//
// Re-running an overlapping fetch is safe as long as the overlap lies
// inside the new batch's span; buckets outside it are never consulted.
func StoreCandles(ctx context.Context, store storage.Store, key GroupKey, from, to time.Time, bars []exchange.Bar) (int, error) {
	group, err := store.EnsureOHLCVGroup(ctx, key.SourceID, key.BaseID, key.QuoteID, key.TimeframeID)
	if err != nil {
		return 0, fmt.Errorf("resolve group: %w", err)
	}

	pull := &storage.OHLCVPull{GroupID: group.ID, FromTime: from, ToTime: to}
	if err := store.CreatePull(ctx, pull); err != nil {
		return 0, fmt.Errorf("record pull: %w", err)
	}
	if len(bars) == 0 {
		return 0, nil
	}

	first := bars[0].Time
	last := bars[len(bars)-1].Time
	existing, err := store.CandleTimes(ctx, group.ID, first, last)
	if err != nil {
		return 0, fmt.Errorf("query existing buckets: %w", err)
	}
	seen := make(map[time.Time]struct{}, len(existing))
	for _, t := range existing {
		seen[t.UTC()] = struct{}{}
	}

	candles := make([]storage.OHLCVCandle, 0, len(bars))
	for _, bar := range bars {
		if _, ok := seen[bar.Time.UTC()]; ok {
			continue
		}
		seen[bar.Time.UTC()] = struct{}{}
		candles = append(candles, storage.OHLCVCandle{
			PullID:     pull.ID,
			GroupID:    group.ID,
			BucketTime: bar.Time,
			Open:       bar.Open,
			High:       bar.High,
			Low:        bar.Low,
			Close:      bar.Close,
			Volume:     bar.Volume,
			HighTime:   bar.HighTime,
			LowTime:    bar.LowTime,
		})
	}
	if len(candles) == 0 {
		return 0, nil
	}
	if err := store.InsertCandles(ctx, candles); err != nil {
		return 0, fmt.Errorf("insert candles: %w", err)
	}
	return len(candles), nil
}
