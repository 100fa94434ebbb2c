package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketsync/pkg/cache"
	"marketsync/pkg/coinmarket"
	"marketsync/pkg/exchange"
	"marketsync/pkg/storage"
	"marketsync/pkg/storage/memstore"
)

// fakeBarClient serves hourly bars from a fixed history, mimicking a
// cursor-based provider.
type fakeBarClient struct {
	bars []exchange.Bar
}

func (f *fakeBarClient) FetchBars(_ context.Context, _, _ string, since time.Time) ([]exchange.Bar, error) {
	var out []exchange.Bar
	for _, b := range f.bars {
		if !b.Time.Before(since) {
			out = append(out, b)
		}
		if len(out) == 3 {
			break
		}
	}
	return out, nil
}

func newTestService(t *testing.T, db storage.DB, bars exchange.BarClient, market *coinmarket.Client) *Service {
	t.Helper()
	refs := NewRefCache(cache.NewMemoryCache())
	return NewService(db, refs, bars, market, nil, 0, zap.NewNop())
}

func TestServiceSyncCandlesEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	var history []exchange.Bar
	for i := 0; i < 8; i++ {
		history = append(history, bar(from.Add(time.Duration(i)*time.Hour)))
	}
	svc := newTestService(t, db, &fakeBarClient{bars: history}, nil)

	inserted, err := svc.SyncCandles(ctx, "BTC", "USDT", "1h", from, from.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 6, inserted)

	// Re-running the same window is a no-op.
	inserted, err = svc.SyncCandles(ctx, "BTC", "USDT", "1h", from, from.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// Pair symbols were auto-created as unknown.
	btc, err := db.FindCurrencyBySymbol(ctx, "BTC")
	require.NoError(t, err)
	require.NotNil(t, btc)
	assert.Equal(t, storage.CurrencyKindUnknown, btc.Kind)
}

func TestServiceSyncCandlesValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memstore.New(), &fakeBarClient{}, nil)
	at := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.SyncCandles(ctx, "BTC", "USDT", "1h", at, at)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.SyncCandles(ctx, "BTC", "USDT", "7h", at, at.Add(time.Hour))
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
}

func TestServiceSyncCurrencies(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/cryptocurrency/listings/latest", r.URL.Path)
		w.Write([]byte(`{"status":{"error_code":0},"data":[
			{"id":1,"name":"Bitcoin","symbol":"BTC","slug":"bitcoin","cmc_rank":1,
			 "tags":["store-of-value"],"last_updated":"2024-03-01T00:00:00Z"},
			{"id":825,"name":"Tether","symbol":"USDT","slug":"tether","cmc_rank":3,
			 "tags":["stablecoin"],
			 "platform":{"name":"Ethereum","symbol":"ETH","token_address":"0xdac1"},
			 "last_updated":"2024-03-01T00:00:00Z"}
		]}`))
	}))
	defer server.Close()

	db := memstore.New()
	market := coinmarket.NewClient(server.URL, "test-key", 5*time.Second, 0)
	svc := newTestService(t, db, nil, market)

	n, err := svc.SyncCurrencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	usdt, err := db.FindCurrencyBySymbol(ctx, "USDT", storage.CurrencyKindCrypto)
	require.NoError(t, err)
	require.NotNil(t, usdt)
	assert.Equal(t, "tether", usdt.Slug)
	assert.NotNil(t, usdt.PlatformID)

	links, err := db.TagLinks(ctx, usdt.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].IsActive)
}
