package trends

import (
	"errors"
	"fmt"
	"time"

	"marketsync/pkg/timeframe"
)

// ErrInvalidRange is returned when from is not strictly before to for a
// bounded range.
var ErrInvalidRange = errors.New("trends: from must be before to")

// Vertical is a search vertical. The empty vertical is web search.
type Vertical string

const (
	VerticalWeb      Vertical = ""
	VerticalImages   Vertical = "images"
	VerticalNews     Vertical = "news"
	VerticalYouTube  Vertical = "youtube"
	VerticalShopping Vertical = "froogle"
)

// BaseDate is the earliest date the provider has data for in a vertical.
// Web search goes back further than the other verticals.
func (v Vertical) BaseDate() time.Time {
	if v == VerticalWeb {
		return time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// subDayCutoff is the earliest date sub-day granularity is available for.
var subDayCutoff = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// Window is one date range to fetch independently. To is nil for the
// open-ended all-time range.
type Window struct {
	From time.Time
	To   *time.Time
}

// Windows maps a granularity label to the ordered date ranges that must be
// fetched independently, given the provider's per-granularity rules:
//
//   - 1M: everything before now is retrievable as a single open-ended
//     all-time range anchored at the vertical's base date; request once.
//   - 1d: calendar-month windows (month start, month last day) from the
//     normalized month containing from up to to.
//   - 8m: 1-day windows; no sub-day data exists before the provider cutoff.
//   - 1m: 4-hour windows aligned to hours divisible by 4; same cutoff.
//
// The windows cover exactly [from, to) in chronological order.
func Windows(label string, vertical Vertical, from time.Time, to time.Time) ([]Window, error) {
	if label == "1M" {
		return []Window{{From: vertical.BaseDate()}}, nil
	}

	if !from.Before(to) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrInvalidRange, from, to)
	}
	from = from.UTC()
	to = to.UTC()

	switch label {
	case "1d":
		var windows []Window
		for m := timeframe.Normalize(from, timeframe.Month); m.Before(to); m = timeframe.Advance(m, timeframe.Month, 1) {
			last := timeframe.Advance(m, timeframe.Month, 1).AddDate(0, 0, -1)
			windows = append(windows, Window{From: m, To: &last})
		}
		return windows, nil

	case "8m":
		if from.Before(subDayCutoff) {
			from = subDayCutoff
		}
		var windows []Window
		for d := timeframe.Normalize(from, timeframe.Day); d.Before(to); d = timeframe.Advance(d, timeframe.Day, 1) {
			end := timeframe.Advance(d, timeframe.Day, 1)
			windows = append(windows, Window{From: d, To: &end})
		}
		return windows, nil

	case "1m":
		if from.Before(subDayCutoff) {
			from = subDayCutoff
		}
		h := timeframe.Normalize(from, timeframe.Hour)
		// Align the start hour down to a multiple of 4.
		h = h.Add(-time.Duration(h.Hour()%4) * time.Hour)
		var windows []Window
		for ; h.Before(to); h = h.Add(4 * time.Hour) {
			end := h.Add(4 * time.Hour)
			windows = append(windows, Window{From: h, To: &end})
		}
		return windows, nil
	}

	return nil, fmt.Errorf("trends: unsupported granularity %q", label)
}

// TimeframeString renders a window as the provider's timeframe parameter.
func TimeframeString(label string, w Window) string {
	if w.To == nil {
		return "all"
	}
	if label == "1d" {
		return w.From.Format("2006-01-02") + " " + w.To.Format("2006-01-02")
	}
	return w.From.Format("2006-01-02T15") + " " + w.To.Format("2006-01-02T15")
}

// Granularities lists the trends granularity labels from finest to
// coarsest. A full update walks them in this order, recursing to coarser
// levels only for ranges not already covered.
func Granularities() []string {
	return []string{"1m", "8m", "1d", "1M"}
}
