package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePlaces is the precision prices are stored at.
const PricePlaces = 2

// HasPricePrecision reports whether p fits in PricePlaces decimal places.
func HasPricePrecision(p decimal.Decimal) bool {
	return p.Equal(p.Round(PricePlaces))
}

type ItemInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
}

type Item struct {
	ID            int64
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	CreatedAt     time.Time
	ModifiedAt    *time.Time // nil until the first update

	// Derived from the audit trail by GetByID; nil when there is no prior entry.
	PreviousPrice      *decimal.Decimal
	PriceChangePercent *decimal.Decimal
}

func (i Item) Snapshot() Snapshot {
	return Snapshot{Price: i.Price, StockQuantity: i.StockQuantity}
}

// Input returns the caller-supplied fields of the item.
func (i Item) Input() ItemInput {
	return ItemInput{
		Name:          i.Name,
		Description:   i.Description,
		Price:         i.Price,
		StockQuantity: i.StockQuantity,
	}
}

func (in ItemInput) Snapshot() Snapshot {
	return Snapshot{Price: in.Price, StockQuantity: in.StockQuantity}
}
