package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// AnalyticsProjector runs read-only ranking queries. It takes no locks and
// sees whatever the engine's default isolation shows it.
type AnalyticsProjector struct {
	conn *ConnectionManager
}

func NewAnalyticsProjector(conn *ConnectionManager) *AnalyticsProjector {
	return &AnalyticsProjector{conn: conn}
}

func (p *AnalyticsProjector) ByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]domain.RankedItem, error) {
	if min.GreaterThan(max) {
		return nil, domain.Validation("price range", "min %s is greater than max %s", min, max)
	}

	db, err := p.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+itemColumns+`,
			RANK() OVER (ORDER BY price) AS price_rank,
			PERCENT_RANK() OVER (ORDER BY price) AS price_percentile
		FROM items
		WHERE price BETWEEN ? AND ?
		ORDER BY price_rank, id`,
		min, max,
	)
	if err != nil {
		return nil, classify("price range", fmt.Errorf("query ranked items: %w", err))
	}
	defer rows.Close()

	var items []domain.RankedItem
	for rows.Next() {
		var ranked domain.RankedItem
		item, err := scanItem(rows, &ranked.PriceRank, &ranked.Percentile)
		if err != nil {
			return nil, classify("price range", fmt.Errorf("scan ranked item: %w", err))
		}
		ranked.Item = item
		ranked.Segment = domain.SegmentFor(ranked.Percentile)
		items = append(items, ranked)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("price range", err)
	}
	return items, nil
}

func (p *AnalyticsProjector) LowStock(ctx context.Context, threshold int) ([]domain.StockAnnotatedItem, error) {
	if threshold < 0 {
		return nil, domain.Validation("low stock", "threshold cannot be negative")
	}

	db, err := p.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// The window aggregates run before the filter, so they describe the
	// whole catalog rather than only the returned rows.
	rows, err := db.QueryContext(ctx, `
		WITH stock_analysis AS (
			SELECT `+itemColumns+`,
				AVG(stock_quantity) OVER () AS avg_stock,
				MIN(stock_quantity) OVER () AS min_stock,
				MAX(stock_quantity) OVER () AS max_stock
			FROM items
		)
		SELECT `+itemColumns+`, avg_stock, min_stock, max_stock
		FROM stock_analysis
		WHERE stock_quantity <= ?
		ORDER BY stock_quantity, id`,
		threshold,
	)
	if err != nil {
		return nil, classify("low stock", fmt.Errorf("query stock analysis: %w", err))
	}
	defer rows.Close()

	var items []domain.StockAnnotatedItem
	for rows.Next() {
		var a domain.StockAnnotatedItem
		item, err := scanItem(rows, &a.CatalogAvgStock, &a.CatalogMinStock, &a.CatalogMaxStock)
		if err != nil {
			return nil, classify("low stock", fmt.Errorf("scan stock analysis: %w", err))
		}
		a.Item = item
		a.Status = domain.ClassifyStock(item.StockQuantity, threshold, a.CatalogAvgStock)
		a.PercentOfAverage = domain.PercentOf(decimal.NewFromInt(int64(item.StockQuantity)), a.CatalogAvgStock)
		a.CatalogAvgStock = a.CatalogAvgStock.Round(domain.AveragePlaces)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("low stock", err)
	}
	return items, nil
}
