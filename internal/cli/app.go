package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/config"
	"github.com/rl1809/inventory-ledger/internal/core/service"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
	"github.com/rl1809/inventory-ledger/internal/port"
)

// app is the wired process: one connection, one store, one service.
type app struct {
	cfg   config.Config
	log   *logger.Logger
	conn  *storage.ConnectionManager
	store *storage.ItemStore
	rdb   *redis.Client
	svc   *service.ItemService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	conn, err := storage.NewConnectionManager(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	// SQLite files are created on demand, so bring their schema up too.
	if cfg.Driver == storage.DriverSQLite {
		if err := storage.EnsureSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	a := &app{cfg: cfg, log: log, conn: conn, store: storage.NewItemStore(conn, log)}

	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
			a.rdb.Close()
			a.rdb = nil
		} else {
			cache = storage.NewRedisAdapter(a.rdb)
		}
	}

	a.svc = service.NewItemService(a.store, storage.NewAnalyticsProjector(conn), cache, log)
	log.Debug("app initialized", "environment", cfg.Environment, "driver", cfg.Driver, "cache", cache != nil)
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if err := a.conn.Close(); err != nil {
		a.log.Warn("close database", "error", err)
	}
	a.log.Sync()
}
