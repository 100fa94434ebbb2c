// Package strategy guards registered trading strategies against silent
// logic drift: a strategy runs only while its build-time content checksum
// matches the one recorded at registration.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"marketsync/pkg/storage"
)

// ErrChecksumMismatch means a strategy's implementation changed without a
// version bump since it was registered. Running it would replay history
// under a stale registration, so the invocation is refused.
var ErrChecksumMismatch = errors.New("strategy checksum does not match registered version")

// Strategy identifies one implementation. Checksum is a build-time content
// identifier, not a runtime hash of source text.
type Strategy struct {
	Name     string
	Version  string
	Checksum string
}

// Registry holds the strategies compiled into this binary and verifies
// them against their persisted registrations.
type Registry struct {
	store      storage.StrategyStore
	strategies map[string]Strategy
}

func NewRegistry(store storage.StrategyStore) *Registry {
	return &Registry{
		store:      store,
		strategies: make(map[string]Strategy),
	}
}

func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name] = s
}

// Verify checks one strategy before it runs. An unseen name is recorded; a
// version bump re-records; an unchanged version with a changed checksum
// fails with ErrChecksumMismatch.
func (r *Registry) Verify(ctx context.Context, name string) error {
	s, ok := r.strategies[name]
	if !ok {
		return fmt.Errorf("strategy %q not registered", name)
	}

	record, err := r.store.FindStrategyByName(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup strategy %q: %w", name, err)
	}
	if record == nil {
		record = &storage.StrategyRecord{Name: s.Name, Version: s.Version, Checksum: s.Checksum}
		if err := r.store.CreateStrategy(ctx, record); err != nil {
			return fmt.Errorf("record strategy %q: %w", name, err)
		}
		return nil
	}

	if record.Version == s.Version {
		if record.Checksum != s.Checksum {
			return fmt.Errorf("%w: %s@%s", ErrChecksumMismatch, s.Name, s.Version)
		}
		return nil
	}

	record.Version = s.Version
	record.Checksum = s.Checksum
	if err := r.store.SaveStrategy(ctx, record); err != nil {
		return fmt.Errorf("update strategy %q: %w", name, err)
	}
	return nil
}
