package port

import (
	"context"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

type CacheRepository interface {
	// GetStats returns the cached aggregate, ok=false on a miss
	GetStats(ctx context.Context) (domain.AggregateStats, bool, error)

	// StatsGeneration returns a counter that InvalidateStats bumps. Read it
	// before loading stats from the store and hand it to SetStats.
	StatsGeneration(ctx context.Context) (int64, error)

	// SetStats caches stats only if no invalidation happened since generation
	// was read; stored=false means the value was stale and was dropped
	SetStats(ctx context.Context, stats domain.AggregateStats, generation int64) (stored bool, err error)

	// InvalidateStats drops the cached aggregate after a committed mutation
	InvalidateStats(ctx context.Context) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request failed so it can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
