package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/pkg/storage/memstore"
)

func TestVerifyRecordsNewStrategy(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := NewRegistry(store)
	r.Register(Strategy{Name: "sma-cross", Version: "1.0.0", Checksum: "abc123"})

	require.NoError(t, r.Verify(ctx, "sma-cross"))

	record, err := store.FindStrategyByName(ctx, "sma-cross")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "abc123", record.Checksum)
}

func TestVerifyDetectsDrift(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	first := NewRegistry(store)
	first.Register(Strategy{Name: "sma-cross", Version: "1.0.0", Checksum: "abc123"})
	require.NoError(t, first.Verify(ctx, "sma-cross"))

	// Same version, changed implementation.
	drifted := NewRegistry(store)
	drifted.Register(Strategy{Name: "sma-cross", Version: "1.0.0", Checksum: "fff999"})
	assert.ErrorIs(t, drifted.Verify(ctx, "sma-cross"), ErrChecksumMismatch)
}

func TestVerifyAcceptsVersionBump(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	first := NewRegistry(store)
	first.Register(Strategy{Name: "sma-cross", Version: "1.0.0", Checksum: "abc123"})
	require.NoError(t, first.Verify(ctx, "sma-cross"))

	bumped := NewRegistry(store)
	bumped.Register(Strategy{Name: "sma-cross", Version: "1.1.0", Checksum: "fff999"})
	require.NoError(t, bumped.Verify(ctx, "sma-cross"))

	record, err := store.FindStrategyByName(ctx, "sma-cross")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", record.Version)
	assert.Equal(t, "fff999", record.Checksum)
}

func TestVerifyUnknownName(t *testing.T) {
	r := NewRegistry(memstore.New())
	assert.Error(t, r.Verify(context.Background(), "nope"))
}
