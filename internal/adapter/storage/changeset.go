package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

type txStep string

const (
	stepItem      txStep = "item"
	stepHistory   txStep = "history"
	stepAggregate txStep = "aggregate"
)

// mutation changes the items table inside tx and describes what it did.
type mutation func(ctx context.Context, tx *sql.Tx) (domain.Change, error)

// applyChange runs one mutation as a single unit: lock the aggregate row,
// mutate the item, append the history entry, fold the change into the
// aggregate, commit. Any failure rolls all of it back.
func (s *ItemStore) applyChange(ctx context.Context, op string, mutate mutation) (domain.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn.Acquire(ctx)
	if err != nil {
		return domain.Change{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Change{}, domain.Connection(op, err)
	}
	defer tx.Rollback()

	stats, err := s.stats.lock(ctx, tx)
	if err != nil {
		return domain.Change{}, classify(op, err)
	}

	change, err := mutate(ctx, tx)
	if err != nil {
		return domain.Change{}, classify(op, err)
	}
	if err := s.step(stepItem); err != nil {
		return domain.Change{}, classify(op, err)
	}

	now := s.now()
	if err := s.audit.append(ctx, tx, change.Entry(now)); err != nil {
		return domain.Change{}, classify(op, err)
	}
	if err := s.step(stepHistory); err != nil {
		return domain.Change{}, classify(op, err)
	}

	next := stats.Apply(change)
	if err := s.stats.save(ctx, tx, next, now); err != nil {
		return domain.Change{}, classify(op, err)
	}
	if err := s.step(stepAggregate); err != nil {
		return domain.Change{}, classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Change{}, domain.Transaction(op, err)
	}

	s.log.Debug("change committed",
		"op", op,
		"action", change.Action,
		"item_id", change.ItemID,
		"total_items", next.TotalItems,
		"average_price", next.AveragePrice.String(),
	)
	return change, nil
}

func (s *ItemStore) step(st txStep) error {
	if s.afterStep == nil {
		return nil
	}
	return s.afterStep(st)
}

// classify keeps tagged errors as they are and tags the rest as either a
// lost connection or a failed transaction.
func classify(op string, err error) error {
	var tagged *domain.Error
	if errors.As(err, &tagged) {
		return err
	}
	if isConnectionLoss(err) {
		return domain.Connection(op, err)
	}
	return domain.Transaction(op, err)
}

func isConnectionLoss(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn)
}
