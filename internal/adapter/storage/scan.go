package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

const itemColumns = `id, name, description, price, stock_quantity, created_at, modified_at`

type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads itemColumns followed by any extra columns into extra.
func scanItem(row scanner, extra ...any) (domain.Item, error) {
	var (
		item        domain.Item
		description sql.NullString
		modifiedAt  sql.NullTime
	)
	dest := append([]any{
		&item.ID, &item.Name, &description, &item.Price,
		&item.StockQuantity, &item.CreatedAt, &modifiedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Item{}, err
	}

	if description.Valid {
		item.Description = &description.String
	}
	if modifiedAt.Valid {
		t := modifiedAt.Time
		item.ModifiedAt = &t
	}
	return item, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
