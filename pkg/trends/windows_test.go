package trends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowsMonthlyIsSingleOpenEnded(t *testing.T) {
	windows, err := Windows("1M", VerticalWeb, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	assert.True(t, windows[0].From.Equal(date(2004, time.January, 1)))
	assert.Nil(t, windows[0].To)

	// Non-web verticals anchor later.
	windows, err = Windows("1M", VerticalYouTube, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, windows[0].From.Equal(date(2008, time.January, 1)))
}

func TestWindowsDailyCalendarMonths(t *testing.T) {
	from := date(2020, time.December, 5)
	to := time.Date(2021, time.February, 1, 1, 0, 0, 0, time.UTC)

	windows, err := Windows("1d", VerticalWeb, from, to)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	expect := []struct{ from, to time.Time }{
		{date(2020, time.December, 1), date(2020, time.December, 31)},
		{date(2021, time.January, 1), date(2021, time.January, 31)},
		{date(2021, time.February, 1), date(2021, time.February, 28)},
	}
	for i, e := range expect {
		assert.True(t, windows[i].From.Equal(e.from), "window %d from: got %v", i, windows[i].From)
		require.NotNil(t, windows[i].To, "window %d", i)
		assert.True(t, windows[i].To.Equal(e.to), "window %d to: got %v", i, *windows[i].To)
	}
}

func TestWindowsMinuteFourHourAligned(t *testing.T) {
	from := time.Date(2020, time.December, 1, 1, 0, 0, 0, time.UTC)
	to := time.Date(2020, time.December, 1, 23, 0, 0, 0, time.UTC)

	windows, err := Windows("1m", VerticalWeb, from, to)
	require.NoError(t, err)
	require.Len(t, windows, 6)

	start := time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC)
	for i, w := range windows {
		wantFrom := start.Add(time.Duration(i) * 4 * time.Hour)
		assert.True(t, w.From.Equal(wantFrom), "window %d from: got %v", i, w.From)
		require.NotNil(t, w.To)
		assert.True(t, w.To.Equal(wantFrom.Add(4*time.Hour)), "window %d to: got %v", i, *w.To)
	}

	last := windows[len(windows)-1]
	assert.True(t, last.To.Equal(time.Date(2020, time.December, 2, 0, 0, 0, 0, time.UTC)))
}

func TestWindowsEightMinuteDailyChunks(t *testing.T) {
	from := time.Date(2020, time.December, 1, 6, 0, 0, 0, time.UTC)
	to := date(2020, time.December, 3)

	windows, err := Windows("8m", VerticalWeb, from, to)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.True(t, windows[0].From.Equal(date(2020, time.December, 1)))
	assert.True(t, windows[1].From.Equal(date(2020, time.December, 2)))
}

func TestWindowsSubDayCutoff(t *testing.T) {
	// Sub-day data does not exist before the provider cutoff; the
	// effective start clamps forward.
	from := date(2014, time.June, 1)
	to := time.Date(2015, time.January, 1, 8, 0, 0, 0, time.UTC)

	windows, err := Windows("1m", VerticalWeb, from, to)
	require.NoError(t, err)
	require.NotEmpty(t, windows)
	assert.True(t, windows[0].From.Equal(date(2015, time.January, 1)), "got %v", windows[0].From)
}

func TestWindowsInvalidRange(t *testing.T) {
	from := date(2021, time.January, 2)
	to := date(2021, time.January, 1)

	_, err := Windows("1d", VerticalWeb, from, to)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Windows("1d", VerticalWeb, from, from)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestWindowsUnsupportedGranularity(t *testing.T) {
	_, err := Windows("1h", VerticalWeb, date(2021, time.January, 1), date(2021, time.February, 1))
	assert.Error(t, err)
}

func TestTimeframeString(t *testing.T) {
	assert.Equal(t, "all", TimeframeString("1M", Window{From: date(2004, time.January, 1)}))

	end := date(2020, time.December, 31)
	assert.Equal(t, "2020-12-01 2020-12-31",
		TimeframeString("1d", Window{From: date(2020, time.December, 1), To: &end}))

	hEnd := time.Date(2020, time.December, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, "2020-12-01T00 2020-12-01T04",
		TimeframeString("1m", Window{From: date(2020, time.December, 1), To: &hEnd}))
}
