package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AveragePlaces is the precision the reported average is rounded to.
const AveragePlaces = 4

// AggregateStats is the running summary of the catalog. TotalPrice is the
// exact sum of all prices; AveragePrice is always derived from it and never
// fed back into the next update.
type AggregateStats struct {
	TotalItems   int64
	TotalPrice   decimal.Decimal
	AveragePrice decimal.Decimal
	LastUpdated  time.Time
}

// Apply folds a change into the running count and total without a scan.
// avg*n is carried as TotalPrice, so
//
//	insert: total' = total + p,         n' = n + 1
//	update: total' = total - old + new
//	delete: total' = total - old,       n' = n - 1
//
// and avg' = total'/n' (0 when the catalog is empty).
func (s AggregateStats) Apply(c Change) AggregateStats {
	switch c.Action {
	case ActionInsert:
		s.TotalItems++
		s.TotalPrice = s.TotalPrice.Add(c.After.Price)
	case ActionUpdate:
		if s.TotalItems > 0 {
			s.TotalPrice = s.TotalPrice.Sub(c.Before.Price).Add(c.After.Price)
		}
	case ActionDelete:
		if s.TotalItems > 0 {
			s.TotalItems--
			s.TotalPrice = s.TotalPrice.Sub(c.Before.Price)
		}
	}
	if s.TotalItems == 0 {
		s.TotalPrice = decimal.Zero
	}
	s.AveragePrice = MeanPrice(s.TotalPrice, s.TotalItems)
	return s
}

// MeanPrice is total/n rounded to AveragePlaces, or 0 for an empty catalog.
func MeanPrice(total decimal.Decimal, n int64) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(n), AveragePlaces)
}
