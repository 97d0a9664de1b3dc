package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Snapshot is the audited state of an item at one side of a change.
type Snapshot struct {
	Price         decimal.Decimal
	StockQuantity int
}

// Change is a single mutation of the item set. Before is nil for inserts,
// After is nil for deletes.
type Change struct {
	Action Action
	ItemID int64
	Before *Snapshot
	After  *Snapshot
}

func InsertChange(id int64, after Snapshot) Change {
	return Change{Action: ActionInsert, ItemID: id, After: &after}
}

func UpdateChange(id int64, before, after Snapshot) Change {
	return Change{Action: ActionUpdate, ItemID: id, Before: &before, After: &after}
}

func DeleteChange(id int64, before Snapshot) Change {
	return Change{Action: ActionDelete, ItemID: id, Before: &before}
}

// HistoryEntry is an immutable audit record. ItemID may refer to an item
// that no longer exists.
type HistoryEntry struct {
	ID       int64
	ItemID   int64
	Action   Action
	OldPrice *decimal.Decimal
	NewPrice *decimal.Decimal
	OldStock *int
	NewStock *int
	ActionAt time.Time
}

// Entry converts the change into the history row that records it.
func (c Change) Entry(at time.Time) HistoryEntry {
	e := HistoryEntry{ItemID: c.ItemID, Action: c.Action, ActionAt: at}
	if c.Before != nil {
		p, s := c.Before.Price, c.Before.StockQuantity
		e.OldPrice, e.OldStock = &p, &s
	}
	if c.After != nil {
		p, s := c.After.Price, c.After.StockQuantity
		e.NewPrice, e.NewStock = &p, &s
	}
	return e
}
