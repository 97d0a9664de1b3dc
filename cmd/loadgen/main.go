package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/config"
	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	workers := flag.Int("workers", 8, "concurrent writers")
	opsPerWorker := flag.Int("ops", 50, "operations per writer")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg, err := logger.New("production")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	conn, err := storage.NewConnectionManager(cfg.Driver, cfg.ConnectionString())
	if err != nil {
		log.Fatalf("failed to configure database: %v", err)
	}
	defer conn.Close()
	if err := storage.EnsureSchema(ctx, conn); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	store := storage.NewItemStore(conn, lg)

	var creates, updates, deletes, failures atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker)))
			var owned []int64

			for i := 0; i < *opsPerWorker; i++ {
				price := decimal.NewFromInt(int64(rng.Intn(10000))).Shift(-2)
				switch {
				case len(owned) == 0 || rng.Intn(3) == 0:
					id, err := store.Create(ctx, domain.ItemInput{
						Name:          fmt.Sprintf("load-%d-%d", worker, i),
						Price:         price,
						StockQuantity: rng.Intn(100),
					})
					if err != nil {
						failures.Add(1)
						continue
					}
					owned = append(owned, id)
					creates.Add(1)
				case rng.Intn(4) == 0:
					idx := rng.Intn(len(owned))
					if err := store.Delete(ctx, owned[idx]); err != nil {
						failures.Add(1)
						continue
					}
					owned = append(owned[:idx], owned[idx+1:]...)
					deletes.Add(1)
				default:
					id := owned[rng.Intn(len(owned))]
					err := store.Update(ctx, domain.Item{
						ID:            id,
						Name:          fmt.Sprintf("load-%d-%d", worker, i),
						Price:         price,
						StockQuantity: rng.Intn(100),
					})
					if err != nil {
						failures.Add(1)
						continue
					}
					updates.Add(1)
				}
			}
		}(w)
	}

	wg.Wait()
	elapsed := time.Since(start)

	incremental, err := store.Stats(ctx)
	if err != nil {
		log.Fatalf("failed to read stats: %v", err)
	}
	rebuilt, err := store.RebuildStats(ctx)
	if err != nil {
		log.Fatalf("failed to rebuild stats: %v", err)
	}

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Writers:          %d\n", *workers)
	fmt.Printf("Creates:          %d\n", creates.Load())
	fmt.Printf("Updates:          %d\n", updates.Load())
	fmt.Printf("Deletes:          %d\n", deletes.Load())
	fmt.Printf("Failed:           %d\n", failures.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	fmt.Printf("Incremental:      %d items, total %s, avg %s\n",
		incremental.TotalItems, incremental.TotalPrice.StringFixed(2), incremental.AveragePrice.StringFixed(4))
	fmt.Printf("Full scan:        %d items, total %s, avg %s\n",
		rebuilt.TotalItems, rebuilt.TotalPrice.StringFixed(2), rebuilt.AveragePrice.StringFixed(4))

	if incremental.TotalItems == rebuilt.TotalItems &&
		incremental.TotalPrice.Equal(rebuilt.TotalPrice) &&
		incremental.AveragePrice.Equal(rebuilt.AveragePrice) {
		fmt.Println("PASS: aggregate matches the catalog")
	} else {
		fmt.Println("FAIL: incremental aggregate differs from a full scan")
	}
}
