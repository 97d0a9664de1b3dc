package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

type ItemRepository interface {
	// Create persists the item, its INSERT history entry and the aggregate update atomically
	Create(ctx context.Context, in domain.ItemInput) (int64, error)

	// GetByID returns nil, nil when the item does not exist
	GetByID(ctx context.Context, id int64) (*domain.Item, error)

	// GetAll annotates every item against the current aggregate average
	GetAll(ctx context.Context) ([]domain.AnnotatedItem, error)

	Update(ctx context.Context, item domain.Item) error

	Delete(ctx context.Context, id int64) error

	// UpdateStock replaces the stock quantity through the Update path
	UpdateStock(ctx context.Context, id int64, quantity int) error

	Stats(ctx context.Context) (domain.AggregateStats, error)

	History(ctx context.Context, id int64) ([]domain.HistoryEntry, error)

	// RebuildStats recomputes the aggregate from a full scan
	RebuildStats(ctx context.Context) (domain.AggregateStats, error)
}

type AnalyticsRepository interface {
	ByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]domain.RankedItem, error)

	LowStock(ctx context.Context, threshold int) ([]domain.StockAnnotatedItem, error)
}
