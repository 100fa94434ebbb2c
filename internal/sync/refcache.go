package sync

import (
	"context"
	"fmt"
	"strconv"
	stdsync "sync"

	"marketsync/pkg/cache"
	"marketsync/pkg/storage"
	"marketsync/pkg/timeframe"
)

// RefCache memoizes frequently resolved reference-entity IDs (timeframes,
// sources) in the key-value cache, keyed by stable strings. IDs are
// surrogate keys that never change once assigned, so entries are written
// once and never invalidated.
type RefCache struct {
	kv cache.Cache

	initOnce stdsync.Once
	initErr  error
}

func NewRefCache(kv cache.Cache) *RefCache {
	return &RefCache{kv: kv}
}

func timeframeKey(label string) string   { return "timeframe:" + label }
func sourceKey(name, kind string) string { return "source:" + kind + ":" + name }

// Init creates the standard timeframe rows and warms the cache. Safe to
// call repeatedly; only the first call does work.
func (r *RefCache) Init(ctx context.Context, store storage.Store) error {
	r.initOnce.Do(func() {
		for _, tf := range timeframe.Standard() {
			if _, err := r.TimeframeID(ctx, store, tf.Label()); err != nil {
				r.initErr = err
				return
			}
		}
	})
	return r.initErr
}

// TimeframeID resolves a timeframe label to its row ID, creating the row
// on first sight.
func (r *RefCache) TimeframeID(ctx context.Context, store storage.Store, label string) (uint, error) {
	if id, ok := r.get(ctx, timeframeKey(label)); ok {
		return id, nil
	}
	tf, err := timeframe.Parse(label)
	if err != nil {
		return 0, err
	}
	row, err := store.EnsureTimeframe(ctx, string(tf.Unit), tf.Amount, tf.Label())
	if err != nil {
		return 0, fmt.Errorf("ensure timeframe %q: %w", label, err)
	}
	r.put(ctx, timeframeKey(label), row.ID)
	return row.ID, nil
}

// SourceID resolves a (name, kind) source to its row ID, creating the row
// on first sight.
func (r *RefCache) SourceID(ctx context.Context, store storage.Store, name, kind string) (uint, error) {
	if id, ok := r.get(ctx, sourceKey(name, kind)); ok {
		return id, nil
	}
	row, err := store.EnsureSource(ctx, name, kind, nil)
	if err != nil {
		return 0, fmt.Errorf("ensure source %q: %w", name, err)
	}
	r.put(ctx, sourceKey(name, kind), row.ID)
	return row.ID, nil
}

func (r *RefCache) get(ctx context.Context, key string) (uint, bool) {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		// A miss or an unreachable cache both fall through to the store.
		return 0, false
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (r *RefCache) put(ctx context.Context, key string, id uint) {
	// Best effort: the store remains the source of truth.
	_ = r.kv.Set(ctx, key, []byte(strconv.FormatUint(uint64(id), 10)))
}
