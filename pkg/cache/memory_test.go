package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "timeframe:1d")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "timeframe:1d", []byte("42")))

	got, err := c.Get(ctx, "timeframe:1d")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	value := []byte("7")
	require.NoError(t, c.Set(ctx, "source:aggregator", value))
	value[0] = 'X'

	got, err := c.Get(ctx, "source:aggregator")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), got)

	// Mutating the returned slice must not affect the stored value either.
	got[0] = 'Y'
	again, err := c.Get(ctx, "source:aggregator")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), again)
}
