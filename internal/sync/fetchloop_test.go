package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/pkg/exchange"
	"marketsync/pkg/timeframe"
)

func hourly() timeframe.Timeframe {
	return timeframe.Timeframe{Unit: timeframe.Hour, Amount: 1}
}

func bar(t time.Time) exchange.Bar {
	return exchange.Bar{Time: t, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
}

func TestFetchRangeCollectsUpToBound(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(5 * time.Hour)

	var cursors []time.Time
	fetch := func(_ context.Context, since time.Time) ([]exchange.Bar, error) {
		cursors = append(cursors, since)
		var out []exchange.Bar
		for i := 0; i < 3; i++ {
			out = append(out, bar(since.Add(time.Duration(i)*time.Hour)))
		}
		return out, nil
	}

	bars, err := FetchRange(context.Background(), hourly(), from, to, fetch)
	require.NoError(t, err)
	require.Len(t, bars, 5)
	for i, b := range bars {
		assert.True(t, b.Time.Equal(from.Add(time.Duration(i)*time.Hour)), "bar %d at %v", i, b.Time)
	}
}

func TestFetchRangeStopsAtBoundaryRecord(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)

	calls := 0
	fetch := func(_ context.Context, since time.Time) ([]exchange.Bar, error) {
		calls++
		// One batch spanning past the bound.
		return []exchange.Bar{bar(since), bar(since.Add(time.Hour)), bar(since.Add(2 * time.Hour)), bar(since.Add(3 * time.Hour))}, nil
	}

	bars, err := FetchRange(context.Background(), hourly(), from, to, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, bars, 2)
	assert.True(t, bars[1].Time.Before(to))
}

func TestFetchRangeEmptyBatchAdvancesByDayForFineTimeframes(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)

	var cursors []time.Time
	fetch := func(_ context.Context, since time.Time) ([]exchange.Bar, error) {
		cursors = append(cursors, since)
		if since.Equal(from.AddDate(0, 0, 2)) {
			return []exchange.Bar{bar(since)}, nil
		}
		return nil, nil
	}

	bars, err := FetchRange(context.Background(), hourly(), from, to, fetch)
	require.NoError(t, err)
	require.Len(t, bars, 1)

	// An hourly step is less than a day, so sparse stretches advance by
	// whole days instead.
	require.Len(t, cursors, 4)
	assert.True(t, cursors[1].Equal(from.AddDate(0, 0, 1)))
	assert.True(t, cursors[2].Equal(from.AddDate(0, 0, 2)))
}

func TestFetchRangeEmptyBatchAdvancesByStepForCoarseTimeframes(t *testing.T) {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 3, 0)

	monthly := timeframe.Timeframe{Unit: timeframe.Month, Amount: 1}
	var cursors []time.Time
	fetch := func(_ context.Context, since time.Time) ([]exchange.Bar, error) {
		cursors = append(cursors, since)
		return nil, nil
	}

	_, err := FetchRange(context.Background(), monthly, from, to, fetch)
	require.NoError(t, err)

	// A monthly step exceeds one day; the cursor moves month by month.
	require.Len(t, cursors, 3)
	assert.True(t, cursors[1].Equal(from.AddDate(0, 1, 0)))
	assert.True(t, cursors[2].Equal(from.AddDate(0, 2, 0)))
}

func TestFetchRangeInvalidRange(t *testing.T) {
	at := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := FetchRange(context.Background(), hourly(), at, at, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFetchRangePropagatesProviderError(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	boom := errors.New("rate limited")

	_, err := FetchRange(context.Background(), hourly(), from, from.Add(time.Hour),
		func(context.Context, time.Time) ([]exchange.Bar, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}
