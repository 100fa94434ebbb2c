// Package cache provides the small key-value cache used to memoize
// frequently-resolved reference-entity IDs.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is not present.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a byte-oriented key-value store keyed by stable strings.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
