package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

var errStatsMissing = errors.New("aggregate stats row missing, run migrate")

type aggregateStats struct {
	dialect dialect
}

const selectStats = `SELECT total_items, total_price, average_price, last_updated FROM aggregate_stats WHERE stat_id = 1`

func scanStats(row *sql.Row) (domain.AggregateStats, error) {
	var s domain.AggregateStats
	if err := row.Scan(&s.TotalItems, &s.TotalPrice, &s.AveragePrice, &s.LastUpdated); err != nil {
		return s, err
	}
	// SQLite hands DECIMAL columns back as floats.
	s.TotalPrice = s.TotalPrice.Round(domain.PricePlaces)
	s.AveragePrice = s.AveragePrice.Round(domain.AveragePlaces)
	return s, nil
}

// lock reads the aggregate row and holds it for the rest of the transaction,
// so concurrent writers always compute from a committed base.
func (a aggregateStats) lock(ctx context.Context, tx *sql.Tx) (domain.AggregateStats, error) {
	s, err := scanStats(tx.QueryRowContext(ctx, selectStats+a.dialect.lockSuffix))
	if errors.Is(err, sql.ErrNoRows) {
		return s, errStatsMissing
	}
	if err != nil {
		return s, fmt.Errorf("lock aggregate stats: %w", err)
	}
	return s, nil
}

func (a aggregateStats) save(ctx context.Context, tx *sql.Tx, s domain.AggregateStats, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE aggregate_stats
		SET total_items = ?, total_price = ?, average_price = ?, last_updated = ?
		WHERE stat_id = 1`,
		s.TotalItems, s.TotalPrice, domain.MeanPrice(s.TotalPrice, s.TotalItems), now,
	)
	if err != nil {
		return fmt.Errorf("update aggregate stats: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errStatsMissing
	}
	return nil
}

func (a aggregateStats) read(ctx context.Context, db *sql.DB) (domain.AggregateStats, error) {
	s, err := scanStats(db.QueryRowContext(ctx, selectStats))
	if errors.Is(err, sql.ErrNoRows) {
		return s, errStatsMissing
	}
	if err != nil {
		return s, fmt.Errorf("query aggregate stats: %w", err)
	}
	return s, nil
}

// recompute derives the aggregate from a full scan. Only the administrative
// rebuild uses it; mutations never do.
func (a aggregateStats) recompute(ctx context.Context, tx *sql.Tx) (domain.AggregateStats, error) {
	var (
		s     domain.AggregateStats
		total decimal.NullDecimal
	)
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*), SUM(price) FROM items`).Scan(&s.TotalItems, &total)
	if err != nil {
		return s, fmt.Errorf("scan items: %w", err)
	}
	if total.Valid {
		s.TotalPrice = total.Decimal.Round(domain.PricePlaces)
	}
	s.AveragePrice = domain.MeanPrice(s.TotalPrice, s.TotalItems)
	return s, nil
}
