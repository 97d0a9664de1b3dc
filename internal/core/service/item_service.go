package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
	"github.com/rl1809/inventory-ledger/internal/port"
)

// ItemService validates caller input and fronts the store with an optional
// cache. The cache is best effort: its failures are logged, never returned.
type ItemService struct {
	items     port.ItemRepository
	analytics port.AnalyticsRepository
	cache     port.CacheRepository
	log       *logger.Logger
}

// NewItemService accepts a nil cache, in which case stats always come from
// the store and idempotency keys are ignored.
func NewItemService(items port.ItemRepository, analytics port.AnalyticsRepository, cache port.CacheRepository, log *logger.Logger) *ItemService {
	if log == nil {
		log = logger.Nop()
	}
	return &ItemService{
		items:     items,
		analytics: analytics,
		cache:     cache,
		log:       log.With("component", "item_service"),
	}
}

func validateInput(op string, in domain.ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Validation(op, "name is required")
	}
	if in.Price.IsNegative() {
		return domain.Validation(op, "price cannot be negative")
	}
	if !domain.HasPricePrecision(in.Price) {
		return domain.Validation(op, "price %s has more than %d decimal places", in.Price, domain.PricePlaces)
	}
	if in.StockQuantity < 0 {
		return domain.Validation(op, "stock quantity cannot be negative")
	}
	return nil
}

// Create stores a new item. A non-empty idempotencyKey that was already used
// by a successful create yields ErrDuplicateRequest; a failed create frees
// the key again.
func (s *ItemService) Create(ctx context.Context, in domain.ItemInput, idempotencyKey string) (int64, error) {
	if err := validateInput("create", in); err != nil {
		return 0, err
	}

	var claimed string
	if idempotencyKey != "" && s.cache != nil {
		claimed = "create:" + idempotencyKey
		ok, err := s.cache.SetIdempotency(ctx, claimed)
		if err != nil {
			return 0, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return 0, &domain.Error{Kind: domain.KindDuplicate, Op: "create", Msg: "duplicate request"}
		}
	}

	id, err := s.items.Create(ctx, in)
	if err != nil {
		if claimed != "" {
			if rerr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), claimed); rerr != nil {
				s.log.Warn("release idempotency key failed", "key", idempotencyKey, "error", rerr)
			}
		}
		return 0, err
	}
	s.invalidate(ctx)
	s.log.Info("item created", "item_id", id, "price", in.Price.String())
	return id, nil
}

func (s *ItemService) Get(ctx context.Context, id int64) (*domain.Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *ItemService) List(ctx context.Context) ([]domain.AnnotatedItem, error) {
	return s.items.GetAll(ctx)
}

func (s *ItemService) Update(ctx context.Context, item domain.Item) error {
	if item.ID <= 0 {
		return domain.Validation("update", "item id is required")
	}
	if err := validateInput("update", item.Input()); err != nil {
		return err
	}

	if err := s.items.Update(ctx, item); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("item updated", "item_id", item.ID)
	return nil
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("item deleted", "item_id", id)
	return nil
}

func (s *ItemService) UpdateStock(ctx context.Context, id int64, quantity int) error {
	if err := s.items.UpdateStock(ctx, id, quantity); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("stock updated", "item_id", id, "quantity", quantity)
	return nil
}

func (s *ItemService) History(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	return s.items.History(ctx, id)
}

func (s *ItemService) ByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]domain.RankedItem, error) {
	return s.analytics.ByPriceRange(ctx, min, max)
}

func (s *ItemService) LowStock(ctx context.Context, threshold int) ([]domain.StockAnnotatedItem, error) {
	return s.analytics.LowStock(ctx, threshold)
}

// Stats serves the aggregate from cache when possible. A value loaded from
// the store is cached only if no mutation invalidated the cache meanwhile.
func (s *ItemService) Stats(ctx context.Context) (domain.AggregateStats, error) {
	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		stats, ok, err := s.cache.GetStats(ctx)
		if err != nil {
			s.log.Warn("stats cache read failed", "error", err)
		} else if ok {
			return stats, nil
		}

		if generation, err = s.cache.StatsGeneration(ctx); err != nil {
			s.log.Warn("stats generation read failed", "error", err)
		} else {
			cacheable = true
		}
	}

	stats, err := s.items.Stats(ctx)
	if err != nil {
		return stats, err
	}

	if cacheable {
		stored, err := s.cache.SetStats(ctx, stats, generation)
		if err != nil {
			s.log.Warn("stats cache write failed", "error", err)
		} else if !stored {
			s.log.Debug("stats changed while loading, not cached", "generation", generation)
		}
	}
	return stats, nil
}

func (s *ItemService) RebuildStats(ctx context.Context) (domain.AggregateStats, error) {
	stats, err := s.items.RebuildStats(ctx)
	if err != nil {
		return stats, err
	}
	s.invalidate(ctx)
	return stats, nil
}

func (s *ItemService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		s.log.Warn("stats cache invalidation failed", "error", err)
	}
}
