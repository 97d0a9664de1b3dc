package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

const (
	statsKey             = "stats:aggregate"
	statsGenerationKey   = "stats:generation"
	statsTTL             = 5 * time.Minute
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetStats(ctx context.Context) (domain.AggregateStats, bool, error) {
	fields, err := r.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return domain.AggregateStats{}, false, err
	}
	if len(fields) == 0 {
		return domain.AggregateStats{}, false, nil
	}

	var s domain.AggregateStats
	if s.TotalItems, err = strconv.ParseInt(fields["total_items"], 10, 64); err != nil {
		return s, false, fmt.Errorf("cached total_items: %w", err)
	}
	if s.TotalPrice, err = decimal.NewFromString(fields["total_price"]); err != nil {
		return s, false, fmt.Errorf("cached total_price: %w", err)
	}
	if s.AveragePrice, err = decimal.NewFromString(fields["average_price"]); err != nil {
		return s, false, fmt.Errorf("cached average_price: %w", err)
	}
	if s.LastUpdated, err = time.Parse(time.RFC3339Nano, fields["last_updated"]); err != nil {
		return s, false, fmt.Errorf("cached last_updated: %w", err)
	}
	return s, true, nil
}

func (r *RedisAdapter) StatsGeneration(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

var errStaleGeneration = errors.New("stats generation moved")

// SetStats writes the hash under WATCH on the generation key, so a concurrent
// InvalidateStats either lands before (stale, skipped) or after (drops it).
func (r *RedisAdapter) SetStats(ctx context.Context, s domain.AggregateStats, generation int64) (bool, error) {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, statsGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, statsKey,
				"total_items", s.TotalItems,
				"total_price", s.TotalPrice.String(),
				"average_price", s.AveragePrice.String(),
				"last_updated", s.LastUpdated.UTC().Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, statsKey, statsTTL)
			return nil
		})
		return err
	}, statsGenerationKey)

	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisAdapter) InvalidateStats(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, statsGenerationKey)
		pipe.Del(ctx, statsKey)
		return nil
	})
	return err
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
