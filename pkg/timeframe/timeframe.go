// Package timeframe defines the calendar units used to bucket market data
// and the range arithmetic the sync engine relies on.
package timeframe

import (
	"fmt"
	"strconv"
	"time"
)

// Unit is a calendar unit a timeframe is expressed in.
type Unit string

const (
	Second Unit = "second"
	Minute Unit = "minute"
	Hour   Unit = "hour"
	Day    Unit = "day"
	Week   Unit = "week"
	Month  Unit = "month"
	Year   Unit = "year"
)

// unitMeta holds the canonical label suffix and fixed duration (zero for
// calendar units whose length varies).
type unitMeta struct {
	Suffix string
	Fixed  time.Duration
}

var unitMetas = map[Unit]unitMeta{
	Second: {Suffix: "s", Fixed: time.Second},
	Minute: {Suffix: "m", Fixed: time.Minute},
	Hour:   {Suffix: "h", Fixed: time.Hour},
	Day:    {Suffix: "d", Fixed: 24 * time.Hour},
	Week:   {Suffix: "w"},
	Month:  {Suffix: "M"},
	Year:   {Suffix: "y"},
}

var suffixUnits = map[string]Unit{
	"s": Second,
	"m": Minute,
	"h": Hour,
	"d": Day,
	"w": Week,
	"M": Month,
	"y": Year,
}

// IsValid reports whether the unit is one of the predefined calendar units.
func (u Unit) IsValid() bool {
	_, ok := unitMetas[u]
	return ok
}

func (u Unit) meta() unitMeta {
	m, ok := unitMetas[u]
	if !ok {
		panic(fmt.Sprintf("timeframe: unknown unit %q", u))
	}
	return m
}

// Timeframe is a bucket size, e.g. 8 minutes or 1 month.
type Timeframe struct {
	Unit   Unit
	Amount int
}

// Label returns the canonical label, e.g. "8m", "1d", "1M".
func (tf Timeframe) Label() string {
	return strconv.Itoa(tf.Amount) + tf.Unit.meta().Suffix
}

// Parse parses a canonical label back into a Timeframe.
func Parse(label string) (Timeframe, error) {
	if len(label) < 2 {
		return Timeframe{}, fmt.Errorf("invalid timeframe label: %q", label)
	}
	unit, ok := suffixUnits[label[len(label)-1:]]
	if !ok {
		return Timeframe{}, fmt.Errorf("invalid timeframe label: %q", label)
	}
	amount, err := strconv.Atoi(label[:len(label)-1])
	if err != nil || amount <= 0 {
		return Timeframe{}, fmt.Errorf("invalid timeframe label: %q", label)
	}
	return Timeframe{Unit: unit, Amount: amount}, nil
}

// Normalize truncates t to the start of its bucket for the given unit,
// zeroing all finer fields. Weeks start on Monday. All arithmetic is UTC.
func Normalize(t time.Time, u Unit) time.Time {
	t = t.UTC()
	switch u {
	case Second, Minute, Hour:
		return t.Truncate(u.meta().Fixed)
	case Day:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Week:
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case Month:
		y, m, _ := t.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	panic(fmt.Sprintf("timeframe: unknown unit %q", u))
}

// Advance adds amount units to t. Second through day use fixed-duration
// arithmetic; week, month and year normalize first and then step with
// calendar-correct arithmetic, so one month past Jan 31 is the normalized
// start of the following month rather than an invalid date.
func Advance(t time.Time, u Unit, amount int) time.Time {
	t = t.UTC()
	switch u {
	case Second, Minute, Hour, Day:
		return t.Add(time.Duration(amount) * u.meta().Fixed)
	case Week:
		return Normalize(t, Week).AddDate(0, 0, 7*amount)
	case Month:
		return Normalize(t, Month).AddDate(0, amount, 0)
	case Year:
		return Normalize(t, Year).AddDate(amount, 0, 0)
	}
	panic(fmt.Sprintf("timeframe: unknown unit %q", u))
}

// Normalize truncates t to the start of the bucket containing it.
func (tf Timeframe) Normalize(t time.Time) time.Time {
	return Normalize(t, tf.Unit)
}

// Next returns the start of the bucket following the one containing t.
func (tf Timeframe) Next(t time.Time) time.Time {
	return Advance(t, tf.Unit, tf.Amount)
}

// StepFrom returns the length of one timeframe step beginning at t. For
// fixed units this is independent of t; for calendar units it depends on
// the month or year t falls in.
func (tf Timeframe) StepFrom(t time.Time) time.Duration {
	if fixed := tf.Unit.meta().Fixed; fixed > 0 {
		return time.Duration(tf.Amount) * fixed
	}
	return tf.Next(t).Sub(t.UTC())
}

// Standard is the reference set of timeframes created at bootstrap.
func Standard() []Timeframe {
	return []Timeframe{
		{Minute, 1},
		{Minute, 8},
		{Hour, 1},
		{Hour, 4},
		{Day, 1},
		{Week, 1},
		{Month, 1},
		{Year, 1},
	}
}
