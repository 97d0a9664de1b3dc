package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
)

type testEnv struct {
	conn      *ConnectionManager
	store     *ItemStore
	analytics *AnalyticsProjector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "inventory.db") + "?_txlock=immediate&_busy_timeout=5000"
	conn, err := NewConnectionManager(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, EnsureSchema(context.Background(), conn))

	return &testEnv{
		conn:      conn,
		store:     NewItemStore(conn, logger.Nop()),
		analytics: NewAnalyticsProjector(conn),
	}
}

func (e *testEnv) create(t *testing.T, name, price string, stock int) int64 {
	t.Helper()
	id, err := e.store.Create(context.Background(), domain.ItemInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	db, err := e.conn.Acquire(context.Background())
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func (e *testEnv) stats(t *testing.T) domain.AggregateStats {
	t.Helper()
	s, err := e.store.Stats(context.Background())
	require.NoError(t, err)
	return s
}

// assertConsistent checks the aggregate against a fresh scan of the items.
func (e *testEnv) assertConsistent(t *testing.T) {
	t.Helper()

	items, err := e.store.GetAll(context.Background())
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	mean := domain.MeanPrice(sum, int64(len(items)))

	s := e.stats(t)
	require.Equal(t, int64(len(items)), s.TotalItems)
	require.True(t, s.TotalPrice.Equal(sum), "total %s, sum %s", s.TotalPrice, sum)
	require.True(t, s.AveragePrice.Equal(mean), "average %s, mean %s", s.AveragePrice, mean)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decimalFromInt(i int) decimal.Decimal { return decimal.NewFromInt(int64(i)) }
