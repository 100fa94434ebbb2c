package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketsync/pkg/storage"
)

// currencyReconciler upserts externally reported currencies against
// persisted state. Natural-key lookups are cached for the life of one run
// so a batch with repeated symbols or tags hits the store once per key.
type currencyReconciler struct {
	store    storage.Store
	sourceID uint

	currencies map[string]*storage.Currency
	tags       map[string]*storage.Tag
	platforms  map[string]*storage.Platform
}

func newCurrencyReconciler(store storage.Store, sourceID uint) *currencyReconciler {
	return &currencyReconciler{
		store:      store,
		sourceID:   sourceID,
		currencies: make(map[string]*storage.Currency),
		tags:       make(map[string]*storage.Tag),
		platforms:  make(map[string]*storage.Platform),
	}
}

func currencyKey(symbol, kind string) string { return symbol + "|" + kind }

// lookup finds a currency by symbol. A concrete kind matches records of
// that kind plus unknown records awaiting promotion; an unknown kind
// matches any existing record so a classified row is never duplicated by
// a source that cannot classify.
func (r *currencyReconciler) lookup(ctx context.Context, symbol, kind string) (*storage.Currency, error) {
	if c, ok := r.currencies[currencyKey(symbol, kind)]; ok {
		return c, nil
	}
	var kinds []string
	if kind != storage.CurrencyKindUnknown {
		kinds = []string{kind, storage.CurrencyKindUnknown}
	}
	c, err := r.store.FindCurrencyBySymbol(ctx, symbol, kinds...)
	if err != nil {
		return nil, err
	}
	if c != nil {
		r.currencies[currencyKey(symbol, kind)] = c
	}
	return c, nil
}

func (r *currencyReconciler) remember(c *storage.Currency) {
	r.currencies[currencyKey(c.Symbol, c.Kind)] = c
}

// reconcile upserts one snapshot. A new symbol is created with the
// snapshot's kind (unknown when the source cannot classify it). An
// existing unknown record is promoted in place, keeping its primary key.
// An existing concrete record only has its mutable fields patched, and
// only when the snapshot carries a strictly newer source timestamp.
// Associations are reconciled on every path, including first creation.
func (r *currencyReconciler) reconcile(ctx context.Context, snap CurrencySnapshot) (*storage.Currency, error) {
	kind := snap.Kind
	if kind == "" {
		kind = storage.CurrencyKindUnknown
	}

	cur, err := r.lookup(ctx, snap.Symbol, kind)
	if err != nil {
		return nil, fmt.Errorf("lookup currency %q: %w", snap.Symbol, err)
	}

	switch {
	case cur == nil:
		cur = &storage.Currency{
			Symbol:        snap.Symbol,
			Kind:          kind,
			Name:          snap.Name,
			Slug:          snap.Slug,
			ExternalID:    snap.ExternalID,
			SourceID:      r.sourceID,
			Rank:          snap.Rank,
			LastSourcedAt: snap.SourcedAt,
		}
		if err := r.store.CreateCurrency(ctx, cur); err != nil {
			return nil, fmt.Errorf("create currency %q: %w", snap.Symbol, err)
		}
		r.remember(cur)

	case cur.Kind == storage.CurrencyKindUnknown && kind != storage.CurrencyKindUnknown:
		// Promotion: upgrade classification and fill metadata in place.
		cur.Kind = kind
		r.patchFields(cur, snap)
		if err := r.store.SaveCurrency(ctx, cur); err != nil {
			return nil, fmt.Errorf("promote currency %q: %w", snap.Symbol, err)
		}
		r.remember(cur)

	default:
		if newerThan(snap.SourcedAt, cur.LastSourcedAt) {
			r.patchFields(cur, snap)
			if err := r.store.SaveCurrency(ctx, cur); err != nil {
				return nil, fmt.Errorf("update currency %q: %w", snap.Symbol, err)
			}
		}
	}

	if err := r.reconcilePlatform(ctx, cur, snap.Platform); err != nil {
		return nil, err
	}
	if err := r.reconcileTags(ctx, cur, snap.Tags); err != nil {
		return nil, err
	}
	return cur, nil
}

func (r *currencyReconciler) patchFields(cur *storage.Currency, snap CurrencySnapshot) {
	if snap.Name != "" {
		cur.Name = snap.Name
	}
	if snap.Slug != "" {
		cur.Slug = snap.Slug
	}
	if snap.ExternalID != "" {
		cur.ExternalID = snap.ExternalID
	}
	if snap.Rank != nil {
		cur.Rank = snap.Rank
	}
	if snap.SourcedAt != nil {
		cur.LastSourcedAt = snap.SourcedAt
	}
}

func (r *currencyReconciler) reconcilePlatform(ctx context.Context, cur *storage.Currency, snap *PlatformSnapshot) error {
	if snap == nil || snap.Name == "" {
		return nil
	}
	platform, ok := r.platforms[snap.Name]
	if !ok {
		var err error
		platform, err = r.store.EnsurePlatform(ctx, snap.Name, snap.Symbol, r.sourceID)
		if err != nil {
			return fmt.Errorf("ensure platform %q: %w", snap.Name, err)
		}
		r.platforms[snap.Name] = platform
	}
	if cur.PlatformID != nil && *cur.PlatformID == platform.ID {
		return nil
	}
	cur.PlatformID = &platform.ID
	if err := r.store.SaveCurrency(ctx, cur); err != nil {
		return fmt.Errorf("link platform for %q: %w", cur.Symbol, err)
	}
	return nil
}

// reconcileTags makes the currency's active tag links match names exactly.
// Links missing from the snapshot are deactivated, reappearing ones are
// reactivated on the same row, new ones are created active.
func (r *currencyReconciler) reconcileTags(ctx context.Context, cur *storage.Currency, names []string) error {
	wanted := make(map[uint]struct{}, len(names))
	for _, name := range names {
		tag, ok := r.tags[name]
		if !ok {
			var err error
			tag, err = r.store.EnsureTag(ctx, name, slugify(name))
			if err != nil {
				return fmt.Errorf("ensure tag %q: %w", name, err)
			}
			r.tags[name] = tag
		}
		wanted[tag.ID] = struct{}{}
	}

	links, err := r.store.TagLinks(ctx, cur.ID)
	if err != nil {
		return fmt.Errorf("load tag links for %q: %w", cur.Symbol, err)
	}
	linked := make(map[uint]struct{}, len(links))
	for i := range links {
		link := &links[i]
		linked[link.TagID] = struct{}{}

		_, want := wanted[link.TagID]
		if want == link.IsActive {
			continue
		}
		link.IsActive = want
		if err := r.store.SaveTagLink(ctx, link); err != nil {
			return fmt.Errorf("save tag link for %q: %w", cur.Symbol, err)
		}
	}

	for tagID := range wanted {
		if _, ok := linked[tagID]; ok {
			continue
		}
		link := &storage.CurrencyTag{CurrencyID: cur.ID, TagID: tagID, IsActive: true}
		if err := r.store.CreateTagLink(ctx, link); err != nil {
			return fmt.Errorf("create tag link for %q: %w", cur.Symbol, err)
		}
	}
	return nil
}

// newerThan reports whether incoming is strictly newer than persisted.
// A snapshot without a timestamp never wins against a recorded one.
func newerThan(incoming, persisted *time.Time) bool {
	if incoming == nil {
		return false
	}
	if persisted == nil {
		return true
	}
	return incoming.After(*persisted)
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
