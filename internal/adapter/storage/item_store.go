package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
)

// ItemStore is the transactional store for items. Every mutation updates the
// item, the audit trail and the aggregate statistics as one unit.
type ItemStore struct {
	conn  *ConnectionManager
	audit auditLog
	stats aggregateStats
	log   *logger.Logger
	now   func() time.Time

	// mu serializes mutations on the shared handle.
	mu sync.Mutex

	// afterStep, when set, runs after each step of a mutation; tests use it
	// to inject failures.
	afterStep func(txStep) error
}

func NewItemStore(conn *ConnectionManager, log *logger.Logger) *ItemStore {
	if log == nil {
		log = logger.Nop()
	}
	return &ItemStore{
		conn:  conn,
		stats: aggregateStats{dialect: conn.dialect},
		log:   log.With("component", "item_store"),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

func validateSnapshot(op string, price decimal.Decimal, stock int) error {
	if price.IsNegative() {
		return domain.Validation(op, "price cannot be negative")
	}
	if !domain.HasPricePrecision(price) {
		return domain.Validation(op, "price %s has more than %d decimal places", price, domain.PricePlaces)
	}
	if stock < 0 {
		return domain.Validation(op, "stock quantity cannot be negative")
	}
	return nil
}

func (s *ItemStore) Create(ctx context.Context, in domain.ItemInput) (int64, error) {
	if err := validateSnapshot("create", in.Price, in.StockQuantity); err != nil {
		return 0, err
	}

	change, err := s.applyChange(ctx, "create", func(ctx context.Context, tx *sql.Tx) (domain.Change, error) {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO items (name, description, price, stock_quantity, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			in.Name, nullString(in.Description), in.Price, in.StockQuantity, s.now(),
		)
		if err != nil {
			return domain.Change{}, fmt.Errorf("insert item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return domain.Change{}, fmt.Errorf("insert item id: %w", err)
		}
		return domain.InsertChange(id, in.Snapshot()), nil
	})
	if err != nil {
		return 0, err
	}
	return change.ItemID, nil
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get", fmt.Errorf("query item: %w", err))
	}

	prev, err := s.audit.previousPrice(ctx, db, id)
	if err != nil {
		return nil, classify("get", err)
	}
	if prev != nil {
		item.PreviousPrice = prev
		item.PriceChangePercent = domain.ChangePercent(item.Price, *prev)
	}
	return &item, nil
}

func (s *ItemStore) GetAll(ctx context.Context) ([]domain.AnnotatedItem, error) {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT i.id, i.name, i.description, i.price, i.stock_quantity, i.created_at, i.modified_at,
			s.average_price
		FROM items i
		CROSS JOIN aggregate_stats s
		WHERE s.stat_id = 1
		ORDER BY CASE WHEN i.price > s.average_price THEN 1 ELSE 2 END, i.name, i.id`)
	if err != nil {
		return nil, classify("get all", fmt.Errorf("query items: %w", err))
	}
	defer rows.Close()

	var items []domain.AnnotatedItem
	for rows.Next() {
		var avg decimal.Decimal
		item, err := scanItem(rows, &avg)
		if err != nil {
			return nil, classify("get all", fmt.Errorf("scan item: %w", err))
		}
		items = append(items, domain.AnnotatedItem{
			Item:             item,
			Category:         domain.CategorizePrice(item.Price, avg),
			PercentOfAverage: domain.PercentOf(item.Price, avg),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get all", err)
	}
	return items, nil
}

// lockItem reads the current price and stock of id inside tx.
func (s *ItemStore) lockItem(ctx context.Context, tx *sql.Tx, op string, id int64) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := tx.QueryRowContext(ctx,
		`SELECT price, stock_quantity FROM items WHERE id = ?`+s.conn.dialect.lockSuffix, id,
	).Scan(&snap.Price, &snap.StockQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, domain.NotFound(op, id)
	}
	if err != nil {
		return snap, fmt.Errorf("read item: %w", err)
	}
	return snap, nil
}

func (s *ItemStore) Update(ctx context.Context, item domain.Item) error {
	if item.ID <= 0 {
		return domain.Validation("update", "item id is required")
	}
	if err := validateSnapshot("update", item.Price, item.StockQuantity); err != nil {
		return err
	}

	_, err := s.applyChange(ctx, "update", func(ctx context.Context, tx *sql.Tx) (domain.Change, error) {
		before, err := s.lockItem(ctx, tx, "update", item.ID)
		if err != nil {
			return domain.Change{}, err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE items
			SET name = ?, description = ?, price = ?, stock_quantity = ?, modified_at = ?
			WHERE id = ?`,
			item.Name, nullString(item.Description), item.Price, item.StockQuantity, s.now(), item.ID,
		)
		if err != nil {
			return domain.Change{}, fmt.Errorf("update item: %w", err)
		}
		return domain.UpdateChange(item.ID, before, item.Snapshot()), nil
	})
	return err
}

func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	_, err := s.applyChange(ctx, "delete", func(ctx context.Context, tx *sql.Tx) (domain.Change, error) {
		before, err := s.lockItem(ctx, tx, "delete", id)
		if err != nil {
			return domain.Change{}, err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return domain.Change{}, fmt.Errorf("delete item: %w", err)
		}
		return domain.DeleteChange(id, before), nil
	})
	return err
}

func (s *ItemStore) UpdateStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return domain.Validation("update stock", "quantity cannot be negative")
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.NotFound("update stock", id)
	}

	item.StockQuantity = quantity
	return s.Update(ctx, *item)
}

func (s *ItemStore) Stats(ctx context.Context) (domain.AggregateStats, error) {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return domain.AggregateStats{}, err
	}
	stats, err := s.stats.read(ctx, db)
	if err != nil {
		return stats, classify("stats", err)
	}
	return stats, nil
}

func (s *ItemStore) History(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.list(ctx, db, id)
	if err != nil {
		return nil, classify("history", err)
	}
	return entries, nil
}

// RebuildStats recomputes the aggregate from the items table. It repairs
// drift after manual edits; mutations keep the aggregate current on their own.
func (s *ItemStore) RebuildStats(ctx context.Context) (domain.AggregateStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return domain.AggregateStats{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.AggregateStats{}, domain.Connection("rebuild stats", err)
	}
	defer tx.Rollback()

	if _, err := s.stats.lock(ctx, tx); err != nil {
		return domain.AggregateStats{}, classify("rebuild stats", err)
	}
	stats, err := s.stats.recompute(ctx, tx)
	if err != nil {
		return domain.AggregateStats{}, classify("rebuild stats", err)
	}
	stats.LastUpdated = s.now()
	if err := s.stats.save(ctx, tx, stats, stats.LastUpdated); err != nil {
		return domain.AggregateStats{}, classify("rebuild stats", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.AggregateStats{}, domain.Transaction("rebuild stats", err)
	}

	s.log.Info("aggregate stats rebuilt", "total_items", stats.TotalItems, "average_price", stats.AveragePrice.String())
	return stats, nil
}
