package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/pkg/storage/memstore"
	"marketsync/pkg/trends"
)

func trendsParams() TrendsParams {
	return TrendsParams{
		SourceID:   1,
		CurrencyID: 2,
		Target:     "1m",
		Keyword:    "bitcoin",
		Vertical:   trends.VerticalWeb,
		From:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
	}
}

// stubFetch returns one point per call at the stub's fixed clock, so each
// step stores exactly one point. The rendered timeframe strings are
// appended to got when it is non-nil.
func stubFetch(calls *int, got *[]string, partial bool) TrendsFetchFunc {
	return func(_ context.Context, timeframeStr string) (trends.Result, error) {
		*calls++
		if got != nil {
			*got = append(*got, timeframeStr)
		}
		at := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(*calls) * time.Minute)
		return trends.Result{
			at: {"bitcoin": trends.Point{Value: *calls, IsPartial: partial}},
		}, nil
	}
}

func TestSyncTrendsFinestGranularityCoversRange(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0
	var got []string

	inserted, err := SyncTrends(ctx, store, trendsParams(), stubFetch(&calls, &got, false))
	require.NoError(t, err)

	// One day of range: the six 4-hour windows cover it entirely, so no
	// coarser granularity is consulted.
	assert.Equal(t, 6, calls)
	assert.Equal(t, 6, inserted)
	assert.Equal(t, []string{
		"2024-03-01T00 2024-03-01T04",
		"2024-03-01T04 2024-03-01T08",
		"2024-03-01T08 2024-03-01T12",
		"2024-03-01T12 2024-03-01T16",
		"2024-03-01T16 2024-03-01T20",
		"2024-03-01T20 2024-03-02T00",
	}, got)
}

func TestSyncTrendsStartsAtTargetGranularity(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0
	var got []string

	p := trendsParams()
	p.Target = "1d"
	inserted, err := SyncTrends(ctx, store, p, stubFetch(&calls, &got, false))
	require.NoError(t, err)

	// The walk begins at the requested granularity; finer levels are
	// never consulted.
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, []string{"2024-03-01 2024-03-31"}, got)
}

func TestSyncTrendsFallsBackToCoarserForUncoveredSpan(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0
	var got []string

	p := trendsParams()
	p.From = time.Date(2014, time.November, 1, 0, 0, 0, 0, time.UTC)
	p.To = time.Date(2015, time.January, 1, 8, 0, 0, 0, time.UTC)
	_, err := SyncTrends(ctx, store, p, stubFetch(&calls, &got, false))
	require.NoError(t, err)

	// Sub-day granularities clamp at their availability cutoff; the
	// pre-cutoff remainder is assembled from calendar-month day windows,
	// after which the open-ended window is no longer needed.
	assert.Equal(t, []string{
		"2015-01-01T00 2015-01-01T04",
		"2015-01-01T04 2015-01-01T08",
		"2014-11-01 2014-11-30",
		"2014-12-01 2014-12-31",
	}, got)
}

func TestSyncTrendsSkipsWindowsWithCompleteStep(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0

	_, err := SyncTrends(ctx, store, trendsParams(), stubFetch(&calls, nil, false))
	require.NoError(t, err)
	firstRun := calls

	inserted, err := SyncTrends(ctx, store, trendsParams(), stubFetch(&calls, nil, false))
	require.NoError(t, err)
	assert.Equal(t, firstRun, calls, "complete steps must not be refetched")
	assert.Equal(t, 0, inserted)
}

func TestSyncTrendsRefetchesPartialStepsAndSupersedes(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0

	// Partial steps never count as covered, so the first run falls
	// through every coarser granularity as well.
	_, err := SyncTrends(ctx, store, trendsParams(), stubFetch(&calls, nil, true))
	require.NoError(t, err)
	assert.Equal(t, 9, calls)

	// The rerun refetches each partial window; the fresh complete steps
	// cover the range, so coarser levels stay untouched.
	_, err = SyncTrends(ctx, store, trendsParams(), stubFetch(&calls, nil, false))
	require.NoError(t, err)
	assert.Equal(t, 15, calls)

	minuteTf, err := store.FindTimeframeByLabel(ctx, "1m")
	require.NoError(t, err)
	require.NotNil(t, minuteTf)
	group, err := store.EnsureTrendsGroup(ctx, 1, 2, minuteTf.ID, "", 0)
	require.NoError(t, err)

	windowEnd := time.Date(2024, time.March, 1, 4, 0, 0, 0, time.UTC)
	steps, err := store.StepsCovering(ctx, group.ID, minuteTf.ID,
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), &windowEnd)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	current := 0
	for _, step := range steps {
		if step.IsCurrent {
			current++
			assert.False(t, step.IsPartial)
		}
	}
	assert.Equal(t, 1, current)
}

func TestSyncTrendsMidWalkErrorKeepsEarlierSteps(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	calls := 0
	boom := errors.New("quota exceeded")
	ok := stubFetch(&calls, nil, false)

	fetch := func(fctx context.Context, timeframeStr string) (trends.Result, error) {
		if calls >= 2 {
			return nil, boom
		}
		return ok(fctx, timeframeStr)
	}

	inserted, err := SyncTrends(ctx, store, trendsParams(), fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, inserted)

	minuteTf, err := store.FindTimeframeByLabel(ctx, "1m")
	require.NoError(t, err)
	require.NotNil(t, minuteTf)
	group, err := store.EnsureTrendsGroup(ctx, 1, 2, minuteTf.ID, "", 0)
	require.NoError(t, err)

	// Steps commit one at a time, so the two windows fetched before the
	// failure stay persisted.
	for hour := 0; hour < 8; hour += 4 {
		windowEnd := time.Date(2024, time.March, 1, hour+4, 0, 0, 0, time.UTC)
		steps, err := store.StepsCovering(ctx, group.ID, minuteTf.ID,
			time.Date(2024, time.March, 1, hour, 0, 0, 0, time.UTC), &windowEnd)
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.True(t, steps[0].IsCurrent)
	}

	windowEnd := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	steps, err := store.StepsCovering(ctx, group.ID, minuteTf.ID,
		time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), &windowEnd)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestSyncTrendsUnknownTarget(t *testing.T) {
	p := trendsParams()
	p.Target = "1h"

	_, err := SyncTrends(context.Background(), memstore.New(), p, nil)
	assert.Error(t, err)
}

func TestSyncTrendsInvalidRange(t *testing.T) {
	p := trendsParams()
	p.To = p.From

	_, err := SyncTrends(context.Background(), memstore.New(), p, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
