package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalize(t *testing.T) {
	in := ts("2021-03-17T14:35:42Z")

	cases := []struct {
		unit Unit
		want time.Time
	}{
		{Second, ts("2021-03-17T14:35:42Z")},
		{Minute, ts("2021-03-17T14:35:00Z")},
		{Hour, ts("2021-03-17T14:00:00Z")},
		{Day, ts("2021-03-17T00:00:00Z")},
		{Week, ts("2021-03-15T00:00:00Z")}, // Monday
		{Month, ts("2021-03-01T00:00:00Z")},
		{Year, ts("2021-01-01T00:00:00Z")},
	}

	for _, c := range cases {
		t.Run(string(c.unit), func(t *testing.T) {
			got := Normalize(in, c.unit)
			assert.True(t, got.Equal(c.want), "got %v, want %v", got, c.want)

			// Never in the future of the input, and idempotent.
			assert.False(t, got.After(in))
			assert.True(t, Normalize(got, c.unit).Equal(got))
		})
	}
}

func TestNormalizeWeekOnSunday(t *testing.T) {
	// 2021-03-21 is a Sunday; its week starts the preceding Monday.
	got := Normalize(ts("2021-03-21T23:59:59Z"), Week)
	assert.True(t, got.Equal(ts("2021-03-15T00:00:00Z")))
}

func TestAdvanceFixedUnits(t *testing.T) {
	in := ts("2021-03-17T14:35:42Z")

	assert.True(t, Advance(in, Minute, 8).Equal(ts("2021-03-17T14:43:42Z")))
	assert.True(t, Advance(in, Hour, 4).Equal(ts("2021-03-17T18:35:42Z")))
	assert.True(t, Advance(in, Day, 1).Equal(ts("2021-03-18T14:35:42Z")))
}

func TestAdvanceCalendarUnits(t *testing.T) {
	// One month past Jan 31 is the normalized start of February, not an
	// invalid date or a day in March.
	got := Advance(ts("2021-01-31T10:00:00Z"), Month, 1)
	assert.True(t, got.Equal(ts("2021-02-01T00:00:00Z")), "got %v", got)

	got = Advance(ts("2020-12-15T00:00:00Z"), Month, 2)
	assert.True(t, got.Equal(ts("2021-02-01T00:00:00Z")))

	got = Advance(ts("2021-03-17T00:00:00Z"), Week, 1)
	assert.True(t, got.Equal(ts("2021-03-22T00:00:00Z")))

	got = Advance(ts("2020-06-05T00:00:00Z"), Year, 1)
	assert.True(t, got.Equal(ts("2021-01-01T00:00:00Z")))
}

func TestStepFrom(t *testing.T) {
	assert.Equal(t, 8*time.Minute, Timeframe{Minute, 8}.StepFrom(ts("2021-01-01T00:00:00Z")))
	assert.Equal(t, 24*time.Hour, Timeframe{Day, 1}.StepFrom(ts("2021-01-01T00:00:00Z")))

	// February 2021 has 28 days.
	feb := Timeframe{Month, 1}.StepFrom(ts("2021-02-01T00:00:00Z"))
	assert.Equal(t, 28*24*time.Hour, feb)
}

func TestLabelParseRoundTrip(t *testing.T) {
	for _, tf := range Standard() {
		parsed, err := Parse(tf.Label())
		require.NoError(t, err, "label %s", tf.Label())
		assert.Equal(t, tf, parsed)
	}

	// "1m" is minutes, "1M" is months.
	m, err := Parse("1m")
	require.NoError(t, err)
	assert.Equal(t, Minute, m.Unit)

	mo, err := Parse("1M")
	require.NoError(t, err)
	assert.Equal(t, Month, mo.Unit)
}

func TestParseInvalid(t *testing.T) {
	for _, label := range []string{"", "m", "0d", "-1h", "5x", "d1"} {
		_, err := Parse(label)
		assert.Error(t, err, "label %q", label)
	}
}
