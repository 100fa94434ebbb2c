package sync

import (
	"context"
	"time"

	"marketsync/pkg/exchange"
	"marketsync/pkg/timeframe"
)

// FetchFunc requests zero or more bars at a since cursor, in ascending
// timestamp order. An empty batch means no data at this cursor, not end of
// stream.
type FetchFunc func(ctx context.Context, since time.Time) ([]exchange.Bar, error)

// FetchRange drives fetch across [from, to) with a since cursor.
//
// Empty batches advance the cursor by the larger of one native timeframe
// step and one calendar day, so providers with sparse history cannot stall
// the loop. A record at or past to ends the loop immediately; records
// before to are collected. Provider errors propagate without retry.
func FetchRange(ctx context.Context, tf timeframe.Timeframe, from, to time.Time, fetch FetchFunc) ([]exchange.Bar, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	var out []exchange.Bar
	since := from
	for since.Before(to) {
		bars, err := fetch(ctx, since)
		if err != nil {
			return nil, err
		}

		if len(bars) == 0 {
			since = emptyAdvance(tf, since)
			continue
		}

		for _, bar := range bars {
			if !bar.Time.Before(to) {
				return out, nil
			}
			out = append(out, bar)
		}
		since = tf.Next(bars[len(bars)-1].Time)
	}
	return out, nil
}

// emptyAdvance moves the cursor past a stretch the provider has no data
// for: one native step, but never less than a day.
func emptyAdvance(tf timeframe.Timeframe, since time.Time) time.Time {
	byStep := tf.Next(since)
	byDay := since.AddDate(0, 0, 1)
	if byStep.After(byDay) {
		return byStep
	}
	return byDay
}
