package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketsync/pkg/storage"
	"marketsync/pkg/timeframe"
	"marketsync/pkg/trends"
)

// TrendsParams identifies one search-interest update: the group key plus
// the requested range and the keyword queried for the currency. Target is
// the finest granularity the update asks for; coarser levels are consulted
// only for portions the finer levels cannot cover.
type TrendsParams struct {
	SourceID   uint
	CurrencyID uint
	Target     string // finest requested granularity; the group is filed under it
	Keyword    string
	Vertical   trends.Vertical
	Geo        string
	Category   int
	From       time.Time
	To         time.Time
}

// TrendsFetchFunc runs one provider call for a rendered timeframe string.
type TrendsFetchFunc func(ctx context.Context, timeframeStr string) (trends.Result, error)

// span is a half-open [from, to) portion of the requested range still
// needing data.
type span struct {
	from time.Time
	to   time.Time
}

// SyncTrends assembles the requested range from per-granularity provider
// calls. The walk starts at the target granularity and recurses to coarser
// levels only for the portions not covered by a current non-partial step
// at a finer level. Within one level, a window backed by exactly one
// non-partial step is skipped; otherwise the window is refetched, the new
// step becomes current and every competitor is marked stale.
//
// Each step commits in its own transaction, so a provider failure midway
// keeps the steps already stored. Returns the number of points inserted.
func SyncTrends(ctx context.Context, db storage.DB, p TrendsParams, fetch TrendsFetchFunc) (int, error) {
	if !p.From.Before(p.To) {
		return 0, ErrInvalidRange
	}
	labels, err := granularitiesFrom(p.Target)
	if err != nil {
		return 0, err
	}

	targetTf, err := granularityTimeframe(ctx, db, p.Target)
	if err != nil {
		return 0, err
	}
	group, err := db.EnsureTrendsGroup(ctx, p.SourceID, p.CurrencyID, targetTf.ID, p.Geo, p.Category)
	if err != nil {
		return 0, fmt.Errorf("resolve trends group: %w", err)
	}
	pull := &storage.TrendsPull{GroupID: group.ID, FromTime: p.From, ToTime: &p.To}
	if err := db.CreateTrendsPull(ctx, pull); err != nil {
		return 0, fmt.Errorf("record trends pull: %w", err)
	}

	inserted := 0
	uncovered := []span{{from: p.From.UTC(), to: p.To.UTC()}}
	for _, label := range labels {
		if len(uncovered) == 0 {
			break
		}
		tf, err := granularityTimeframe(ctx, db, label)
		if err != nil {
			return inserted, err
		}

		var remaining []span
		for _, sp := range uncovered {
			windows, err := trends.Windows(label, p.Vertical, sp.from, sp.to)
			if err != nil {
				return inserted, err
			}

			var covered []span
			for _, w := range windows {
				n, complete, err := syncStep(ctx, db, group, pull, tf, label, w, p.Keyword, fetch)
				if err != nil {
					return inserted, err
				}
				inserted += n
				if complete {
					covered = append(covered, windowSpan(sp, label, w))
				}
			}
			remaining = append(remaining, subtract(sp, covered)...)
		}
		uncovered = remaining
	}
	return inserted, nil
}

// syncStep decides whether one (window, granularity) pair needs a provider
// call and performs it. complete reports whether the window now has a
// current non-partial step, i.e. whether it counts as covered for coarser
// levels.
func syncStep(ctx context.Context, db storage.DB, group *storage.TrendsGroup, pull *storage.TrendsPull,
	tf *storage.Timeframe, label string, w trends.Window, keyword string, fetch TrendsFetchFunc) (int, bool, error) {

	steps, err := db.StepsCovering(ctx, group.ID, tf.ID, w.From, w.To)
	if err != nil {
		return 0, false, fmt.Errorf("query steps: %w", err)
	}

	if len(steps) == 1 && !steps[0].IsPartial {
		// A single complete step already covers the window; keep it.
		if !steps[0].IsCurrent {
			steps[0].IsCurrent = true
			if err := db.SaveStep(ctx, &steps[0]); err != nil {
				return 0, false, fmt.Errorf("restore step: %w", err)
			}
		}
		return 0, true, nil
	}

	result, err := fetch(ctx, trends.TimeframeString(label, w))
	if err != nil {
		return 0, false, err
	}

	points := make([]storage.TrendsPoint, 0, len(result))
	partial := false
	for at, byKeyword := range result {
		pt, ok := byKeyword[keyword]
		if !ok {
			continue
		}
		if pt.IsPartial {
			partial = true
		}
		points = append(points, storage.TrendsPoint{Time: at, Value: pt.Value, IsPartial: pt.IsPartial})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	step := &storage.TrendsStep{
		PullID:      pull.ID,
		GroupID:     group.ID,
		TimeframeID: tf.ID,
		FromTime:    w.From,
		ToTime:      w.To,
		IsCurrent:   true,
		IsPartial:   partial,
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	if err := tx.CreateStep(ctx, step); err != nil {
		tx.Rollback()
		return 0, false, fmt.Errorf("create step: %w", err)
	}
	for i := range steps {
		if !steps[i].IsCurrent {
			continue
		}
		steps[i].IsCurrent = false
		if err := tx.SaveStep(ctx, &steps[i]); err != nil {
			tx.Rollback()
			return 0, false, fmt.Errorf("supersede step: %w", err)
		}
	}
	for i := range points {
		points[i].StepID = step.ID
	}
	if len(points) > 0 {
		if err := tx.InsertPoints(ctx, points); err != nil {
			tx.Rollback()
			return 0, false, fmt.Errorf("insert points: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return len(points), !partial, nil
}

// granularitiesFrom returns the walk order: the requested granularity
// first, then each coarser level.
func granularitiesFrom(target string) ([]string, error) {
	all := trends.Granularities()
	for i, label := range all {
		if label == target {
			return all[i:], nil
		}
	}
	return nil, fmt.Errorf("unsupported trends granularity %q", target)
}

// windowSpan is the portion of continuous time a completed window covers.
// An open-ended window covers the whole remaining span.
func windowSpan(sp span, label string, w trends.Window) span {
	if w.To == nil {
		return sp
	}
	to := *w.To
	if label == "1d" {
		// Day windows record the month's last day inclusive.
		to = to.AddDate(0, 0, 1)
	}
	return span{from: w.From, to: to}
}

// subtract removes the covered intervals, given in chronological order,
// from sp.
func subtract(sp span, covered []span) []span {
	var out []span
	cur := sp.from
	for _, c := range covered {
		if !c.to.After(cur) {
			continue
		}
		if c.from.After(cur) && cur.Before(sp.to) {
			end := c.from
			if end.After(sp.to) {
				end = sp.to
			}
			out = append(out, span{from: cur, to: end})
		}
		cur = c.to
	}
	if cur.Before(sp.to) {
		out = append(out, span{from: cur, to: sp.to})
	}
	return out
}

// granularityTimeframe resolves the timeframe row for a granularity label,
// creating it on first use.
func granularityTimeframe(ctx context.Context, store storage.Store, label string) (*storage.Timeframe, error) {
	tf, err := timeframe.Parse(label)
	if err != nil {
		return nil, err
	}
	row, err := store.EnsureTimeframe(ctx, string(tf.Unit), tf.Amount, tf.Label())
	if err != nil {
		return nil, fmt.Errorf("ensure timeframe %q: %w", label, err)
	}
	return row, nil
}
