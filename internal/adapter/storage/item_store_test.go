package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

func TestCreate_ThenGetByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	desc := "a blue widget"
	id, err := env.store.Create(ctx, domain.ItemInput{
		Name:          "Widget",
		Description:   &desc,
		Price:         dec("10.00"),
		StockQuantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	item, err := env.store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, "Widget", item.Name)
	require.NotNil(t, item.Description)
	assert.Equal(t, desc, *item.Description)
	assert.True(t, item.Price.Equal(dec("10")), "price %s", item.Price)
	assert.Equal(t, 5, item.StockQuantity)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Nil(t, item.ModifiedAt)
	assert.Nil(t, item.PreviousPrice)
	assert.Nil(t, item.PriceChangePercent)
}

func TestCreate_NilDescription(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "Bolt", "0.25", 100)

	item, err := env.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, item.Description)
	assert.True(t, item.Price.Equal(dec("0.25")))
}

func TestGetByID_NotFound(t *testing.T) {
	env := newTestEnv(t)

	item, err := env.store.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestCreate_RejectsNegativeValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Create(ctx, domain.ItemInput{Name: "x", Price: dec("-1"), StockQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.store.Create(ctx, domain.ItemInput{Name: "x", Price: dec("1"), StockQuantity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM item_history`))
}

func TestCreate_RejectsSubCentPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.Create(ctx, domain.ItemInput{Name: "x", Price: dec("10.005"), StockQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM items`))

	id := env.create(t, "y", "10.500", 1)
	err = env.store.Update(ctx, domain.Item{ID: id, Name: "y", Price: dec("3.141"), StockQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM item_history`))

	s := env.stats(t)
	assert.True(t, s.AveragePrice.Equal(dec("10.5")), "average %s", s.AveragePrice)
}

func TestAverage_NoDriftAfterRepeatedRounding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		env.create(t, "one", "1", 1)
	}
	two := env.create(t, "two", "2", 1)
	require.NoError(t, env.store.Delete(ctx, two))

	s := env.stats(t)
	assert.Equal(t, int64(6), s.TotalItems)
	assert.True(t, s.AveragePrice.Equal(dec("1")), "average %s", s.AveragePrice)

	items, err := env.store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 6)
	for _, it := range items {
		assert.Equal(t, domain.PriceAverage, it.Category)
		assert.True(t, it.PercentOfAverage.Equal(dec("100")), "percent %s", it.PercentOfAverage)
	}

	for i := 0; i < 20; i++ {
		id := env.create(t, "thirds", "0.01", 1)
		require.NoError(t, env.store.Update(ctx, domain.Item{ID: id, Name: "thirds", Price: dec("3.33"), StockQuantity: 1}))
		require.NoError(t, env.store.Delete(ctx, id))
	}
	s = env.stats(t)
	assert.True(t, s.AveragePrice.Equal(dec("1")), "average %s", s.AveragePrice)
	env.assertConsistent(t)
}

func TestAverageTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.create(t, "A", "10", 1)
	env.create(t, "B", "20", 1)

	s := env.stats(t)
	assert.Equal(t, int64(2), s.TotalItems)
	assert.True(t, s.AveragePrice.Equal(dec("15")), "average %s", s.AveragePrice)

	require.NoError(t, env.store.Delete(ctx, a))

	s = env.stats(t)
	assert.Equal(t, int64(1), s.TotalItems)
	assert.True(t, s.AveragePrice.Equal(dec("20")), "average %s", s.AveragePrice)
}

func TestDelete_LastItemResetsAverage(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "Only", "99.99", 3)

	require.NoError(t, env.store.Delete(context.Background(), id))

	s := env.stats(t)
	assert.Equal(t, int64(0), s.TotalItems)
	assert.True(t, s.AveragePrice.IsZero())
}

func TestAggregateConsistency_MixedSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ids := []int64{
		env.create(t, "a", "10.00", 1),
		env.create(t, "b", "20.50", 2),
		env.create(t, "c", "7.25", 3),
	}
	env.assertConsistent(t)

	item, err := env.store.GetByID(ctx, ids[1])
	require.NoError(t, err)
	item.Price = dec("44.10")
	require.NoError(t, env.store.Update(ctx, *item))
	env.assertConsistent(t)

	require.NoError(t, env.store.Delete(ctx, ids[0]))
	env.assertConsistent(t)

	env.create(t, "d", "0", 0)
	env.assertConsistent(t)

	require.NoError(t, env.store.Delete(ctx, ids[2]))
	env.assertConsistent(t)

	require.NoError(t, env.store.UpdateStock(ctx, ids[1], 50))
	env.assertConsistent(t)
}

func TestUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.store.Update(context.Background(), domain.Item{ID: 999, Name: "ghost", Price: dec("1"), StockQuantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM item_history WHERE item_id = ?`, 999))
	assert.Equal(t, int64(0), env.stats(t).TotalItems)
}

func TestUpdate_MissingID(t *testing.T) {
	env := newTestEnv(t)

	err := env.store.Update(context.Background(), domain.Item{Name: "x", Price: dec("1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate_StampsModifiedAndTracksPreviousPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.create(t, "Lamp", "10", 4)

	item, err := env.store.GetByID(ctx, id)
	require.NoError(t, err)
	item.Price = dec("12")
	require.NoError(t, env.store.Update(ctx, *item))

	item, err = env.store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, item.ModifiedAt)
	require.NotNil(t, item.PreviousPrice)
	assert.True(t, item.PreviousPrice.Equal(dec("10")))
	require.NotNil(t, item.PriceChangePercent)
	assert.True(t, item.PriceChangePercent.Equal(dec("20")), "change %s", item.PriceChangePercent)

	item.Price = dec("9")
	require.NoError(t, env.store.Update(ctx, *item))

	item, err = env.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, item.PreviousPrice.Equal(dec("12")))
	assert.True(t, item.PriceChangePercent.Equal(dec("-25")), "change %s", item.PriceChangePercent)
}

func TestDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.store.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM item_history`))
}

func TestHistory_SurvivesDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.create(t, "Cable", "5", 10)

	require.NoError(t, env.store.UpdateStock(ctx, id, 8))
	require.NoError(t, env.store.Delete(ctx, id))

	entries, err := env.store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	insert, update, del := entries[0], entries[1], entries[2]

	assert.Equal(t, domain.ActionInsert, insert.Action)
	assert.Nil(t, insert.OldPrice)
	assert.Nil(t, insert.OldStock)
	require.NotNil(t, insert.NewStock)
	assert.Equal(t, 10, *insert.NewStock)

	assert.Equal(t, domain.ActionUpdate, update.Action)
	assert.Equal(t, 10, *update.OldStock)
	assert.Equal(t, 8, *update.NewStock)
	assert.True(t, update.OldPrice.Equal(*update.NewPrice))

	assert.Equal(t, domain.ActionDelete, del.Action)
	assert.Nil(t, del.NewPrice)
	assert.Nil(t, del.NewStock)
	assert.True(t, del.OldPrice.Equal(dec("5")))

	gone, err := env.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUpdateStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.create(t, "Screw", "0.10", 200)
	before := env.stats(t)

	assert.ErrorIs(t, env.store.UpdateStock(ctx, id, -1), domain.ErrValidation)
	assert.ErrorIs(t, env.store.UpdateStock(ctx, 404, 1), domain.ErrNotFound)

	require.NoError(t, env.store.UpdateStock(ctx, id, 150))

	item, err := env.store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 150, item.StockQuantity)
	assert.Equal(t, "Screw", item.Name)

	after := env.stats(t)
	assert.Equal(t, before.TotalItems, after.TotalItems)
	assert.True(t, before.AveragePrice.Equal(after.AveragePrice))
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM item_history WHERE item_id = ?`, id))
}

func TestAtomicity_FailureAtEachStepRollsBack(t *testing.T) {
	steps := []txStep{stepItem, stepHistory, stepAggregate}
	injected := errors.New("injected failure")

	for _, step := range steps {
		t.Run(string(step), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			id := env.create(t, "Seed", "10", 5)

			items := env.count(t, `SELECT COUNT(*) FROM items`)
			history := env.count(t, `SELECT COUNT(*) FROM item_history`)
			before := env.stats(t)

			env.store.afterStep = func(st txStep) error {
				if st == step {
					return injected
				}
				return nil
			}

			_, err := env.store.Create(ctx, domain.ItemInput{Name: "New", Price: dec("30"), StockQuantity: 1})
			assert.ErrorIs(t, err, injected)
			assert.ErrorIs(t, err, domain.ErrTransaction)

			err = env.store.Update(ctx, domain.Item{ID: id, Name: "Seed", Price: dec("50"), StockQuantity: 9})
			assert.ErrorIs(t, err, injected)

			err = env.store.Delete(ctx, id)
			assert.ErrorIs(t, err, injected)

			env.store.afterStep = nil

			assert.Equal(t, items, env.count(t, `SELECT COUNT(*) FROM items`))
			assert.Equal(t, history, env.count(t, `SELECT COUNT(*) FROM item_history`))

			after := env.stats(t)
			assert.Equal(t, before.TotalItems, after.TotalItems)
			assert.True(t, before.AveragePrice.Equal(after.AveragePrice))

			item, err := env.store.GetByID(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, item)
			assert.True(t, item.Price.Equal(dec("10")))
			assert.Equal(t, 5, item.StockQuantity)
			assert.Nil(t, item.ModifiedAt)
		})
	}
}

func TestCreate_CancelledContextLeavesNoState(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Seed", "10", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.store.Create(ctx, domain.ItemInput{Name: "Late", Price: dec("1"), StockQuantity: 1})
	require.Error(t, err)

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM items`))
	env.assertConsistent(t)
}

func TestConcurrentWriters_KeepAggregateConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.store.Create(ctx, domain.ItemInput{
				Name:          "item",
				Price:         decimalFromInt(i + 1),
				StockQuantity: i,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s := env.stats(t)
	assert.Equal(t, int64(20), s.TotalItems)
	assert.Equal(t, 20, env.count(t, `SELECT COUNT(*) FROM item_history`))
	env.assertConsistent(t)
}

func TestGetAll_CategoriesAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "b", "30", 1)
	env.create(t, "a", "40", 1)
	env.create(t, "d", "20", 1)
	env.create(t, "c", "10", 1)

	items, err := env.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)

	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)

	assert.Equal(t, domain.PriceAboveAverage, items[0].Category)
	assert.True(t, items[0].PercentOfAverage.Equal(dec("160")), "percent %s", items[0].PercentOfAverage)
	assert.Equal(t, domain.PriceAboveAverage, items[1].Category)
	assert.Equal(t, domain.PriceBelowAverage, items[2].Category)
	assert.True(t, items[2].PercentOfAverage.Equal(dec("40")))
	assert.Equal(t, domain.PriceBelowAverage, items[3].Category)
}

func TestGetAll_EqualToAverage(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "x", "10", 1)
	env.create(t, "y", "10", 1)

	items, err := env.store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, domain.PriceAverage, it.Category)
		assert.True(t, it.PercentOfAverage.Equal(dec("100")))
	}
}

func TestGetAll_Empty(t *testing.T) {
	env := newTestEnv(t)

	items, err := env.store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRebuildStats_RepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, "a", "10", 1)
	env.create(t, "b", "30", 1)

	db, err := env.conn.Acquire(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE aggregate_stats SET total_items = 9, total_price = 9, average_price = 1 WHERE stat_id = 1`)
	require.NoError(t, err)

	s, err := env.store.RebuildStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.TotalItems)
	assert.True(t, s.AveragePrice.Equal(dec("20")), "average %s", s.AveragePrice)
	env.assertConsistent(t)
}
