package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// auditLog is append-only: it has no update or delete statements.
type auditLog struct{}

func (auditLog) append(ctx context.Context, tx *sql.Tx, e domain.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO item_history (item_id, action, old_price, new_price, old_stock, new_stock, action_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ItemID, string(e.Action),
		nullDecimal(e.OldPrice), nullDecimal(e.NewPrice),
		nullInt(e.OldStock), nullInt(e.NewStock),
		e.ActionAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (auditLog) list(ctx context.Context, db *sql.DB, itemID int64) ([]domain.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, item_id, action, old_price, new_price, old_stock, new_stock, action_at
		FROM item_history WHERE item_id = ?
		ORDER BY action_at, id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e                  domain.HistoryEntry
			action             string
			oldPrice, newPrice decimal.NullDecimal
			oldStock, newStock sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.ItemID, &action, &oldPrice, &newPrice, &oldStock, &newStock, &e.ActionAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Action = domain.Action(action)
		if oldPrice.Valid {
			e.OldPrice = &oldPrice.Decimal
		}
		if newPrice.Valid {
			e.NewPrice = &newPrice.Decimal
		}
		if oldStock.Valid {
			v := int(oldStock.Int64)
			e.OldStock = &v
		}
		if newStock.Valid {
			v := int(newStock.Int64)
			e.NewStock = &v
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// previousPrice returns the new price recorded by the entry just before the
// most recent one, i.e. the price the item had before its current state.
func (auditLog) previousPrice(ctx context.Context, db *sql.DB, itemID int64) (*decimal.Decimal, error) {
	var prev decimal.NullDecimal
	err := db.QueryRowContext(ctx, `
		SELECT new_price FROM item_history
		WHERE item_id = ?
		ORDER BY action_at DESC, id DESC
		LIMIT 1 OFFSET 1`, itemID,
	).Scan(&prev)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query previous price: %w", err)
	}
	if !prev.Valid {
		return nil, nil
	}
	return &prev.Decimal, nil
}
