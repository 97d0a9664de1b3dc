package storage

import (
	"context"
	"fmt"
	"time"
)

// EnsureSchema creates the three tables and seeds the aggregate row. It is
// safe to run repeatedly.
func EnsureSchema(ctx context.Context, conn *ConnectionManager) error {
	db, err := conn.Acquire(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range conn.dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	_, err = db.ExecContext(ctx, conn.dialect.insertIgnore+` INTO aggregate_stats
		(stat_id, total_items, total_price, average_price, last_updated) VALUES (1, 0, 0, 0, ?)`,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("seed aggregate stats: %w", err)
	}
	return nil
}
