package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/pkg/storage"
	"marketsync/pkg/storage/memstore"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestReconcileCreatesWithAssociations(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	rec := newCurrencyReconciler(store, 1)

	cur, err := rec.reconcile(ctx, CurrencySnapshot{
		Symbol:    "BTC",
		Kind:      storage.CurrencyKindCrypto,
		Name:      "Bitcoin",
		Slug:      "bitcoin",
		Rank:      intp(1),
		Tags:      []string{"store-of-value", "pow"},
		SourcedAt: ts("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, storage.CurrencyKindCrypto, cur.Kind)

	links, err := store.TagLinks(ctx, cur.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, link := range links {
		assert.True(t, link.IsActive)
	}
}

func TestReconcileDeactivatesAndReactivatesTags(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	rec := newCurrencyReconciler(store, 1)

	snap := CurrencySnapshot{
		Symbol:    "ETH",
		Kind:      storage.CurrencyKindCrypto,
		Tags:      []string{"smart-contracts", "pos"},
		SourcedAt: ts("2024-03-01T00:00:00Z"),
	}
	cur, err := rec.reconcile(ctx, snap)
	require.NoError(t, err)

	// The next snapshot drops one tag.
	snap.Tags = []string{"smart-contracts"}
	snap.SourcedAt = ts("2024-03-02T00:00:00Z")
	_, err = newCurrencyReconciler(store, 1).reconcile(ctx, snap)
	require.NoError(t, err)

	links, err := store.TagLinks(ctx, cur.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	active := 0
	for _, link := range links {
		if link.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	// Re-including the tag reactivates the same row.
	snap.Tags = []string{"smart-contracts", "pos"}
	snap.SourcedAt = ts("2024-03-03T00:00:00Z")
	_, err = newCurrencyReconciler(store, 1).reconcile(ctx, snap)
	require.NoError(t, err)

	after, err := store.TagLinks(ctx, cur.ID)
	require.NoError(t, err)
	require.Len(t, after, 2, "reactivation must not create new rows")
	for _, link := range after {
		assert.True(t, link.IsActive)
	}
}

func TestReconcilePromotionKeepsPrimaryKey(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	// A pair symbol seen before any rich listing lands as unknown.
	unknown, err := newCurrencyReconciler(store, 1).reconcile(ctx, CurrencySnapshot{Symbol: "SOL"})
	require.NoError(t, err)
	require.Equal(t, storage.CurrencyKindUnknown, unknown.Kind)

	promoted, err := newCurrencyReconciler(store, 1).reconcile(ctx, CurrencySnapshot{
		Symbol:    "SOL",
		Kind:      storage.CurrencyKindCrypto,
		Name:      "Solana",
		SourcedAt: ts("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, unknown.ID, promoted.ID)
	assert.Equal(t, storage.CurrencyKindCrypto, promoted.Kind)
	assert.Equal(t, "Solana", promoted.Name)

	// No duplicate row exists.
	found, err := store.FindCurrencyBySymbol(ctx, "SOL", storage.CurrencyKindUnknown)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestReconcileStaleSnapshotIgnored(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	fresh := CurrencySnapshot{
		Symbol:    "BTC",
		Kind:      storage.CurrencyKindCrypto,
		Name:      "Bitcoin",
		Rank:      intp(1),
		SourcedAt: ts("2024-03-05T00:00:00Z"),
	}
	cur, err := newCurrencyReconciler(store, 1).reconcile(ctx, fresh)
	require.NoError(t, err)

	stale := fresh
	stale.Name = "Old Bitcoin"
	stale.Rank = intp(7)
	stale.SourcedAt = ts("2024-03-01T00:00:00Z")
	_, err = newCurrencyReconciler(store, 1).reconcile(ctx, stale)
	require.NoError(t, err)

	after, err := store.FindCurrencyBySymbol(ctx, "BTC", storage.CurrencyKindCrypto)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, cur.ID, after.ID)
	assert.Equal(t, "Bitcoin", after.Name)
	assert.Equal(t, 1, *after.Rank)
}

func TestReconcileLinksPlatform(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	cur, err := newCurrencyReconciler(store, 1).reconcile(ctx, CurrencySnapshot{
		Symbol:    "USDT",
		Kind:      storage.CurrencyKindCrypto,
		Platform:  &PlatformSnapshot{Name: "Ethereum", Symbol: "ETH"},
		SourcedAt: ts("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.NotNil(t, cur.PlatformID)

	stored, err := store.FindCurrencyBySymbol(ctx, "USDT", storage.CurrencyKindCrypto)
	require.NoError(t, err)
	require.NotNil(t, stored.PlatformID)
	assert.Equal(t, *cur.PlatformID, *stored.PlatformID)
}

func intp(v int) *int { return &v }
