package trends

// go test -v --run TestFetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchInterestOverTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/interest-over-time", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("q"))
		assert.Equal(t, "2020-12-01 2020-12-31", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "froogle", r.URL.Query().Get("gprop"))

		w.Write([]byte(`{"default":{"timelineData":[
			{"time":"1606780800","value":[42],"isPartial":false},
			{"time":"1606867200","value":[55],"isPartial":true}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 0)
	req := client.BuildQuery([]string{"bitcoin"}, "2020-12-01 2020-12-31", "", 0, VerticalShopping)

	result, err := req.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	first := result[time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC)]
	require.Contains(t, first, "bitcoin")
	assert.Equal(t, Point{Value: 42, IsPartial: false}, first["bitcoin"])

	second := result[time.Date(2020, time.December, 2, 0, 0, 0, 0, time.UTC)]
	assert.Equal(t, Point{Value: 55, IsPartial: true}, second["bitcoin"])
}

func TestFetchBadDatumTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"default":{"timelineData":[{"time":"not-a-number","value":[1]}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 0)
	_, err := client.BuildQuery([]string{"btc"}, "all", "", 0, VerticalWeb).Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 0)
	_, err := client.BuildQuery([]string{"btc"}, "all", "", 0, VerticalWeb).Fetch(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
