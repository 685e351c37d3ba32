package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/core/service"
	"github.com/rl1809/inventory-ledger/internal/port"
)

const (
	product       = "stress-item"
	initialStock  = 20
	maxLevel      = 25
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()

	// Idempotency keys go to Redis when REDIS_ADDR is set
	var idempotency port.IdempotencyStore = storage.NewMemoryIdempotencyStore(time.Minute)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()

		keys, _ := rdb.Keys(ctx, "idempotency:order:stress-*").Result()
		for _, k := range keys {
			rdb.Del(ctx, k)
		}
		idempotency = storage.NewRedisAdapter(rdb, time.Minute)
	}

	ledger := service.NewLedger()
	if err := ledger.SetMaxLevel(product, maxLevel); err != nil {
		log.Fatalf("failed to set max level: %v", err)
	}
	if err := ledger.Add(product, initialStock); err != nil {
		log.Fatalf("failed to add stock: %v", err)
	}

	orderService := service.NewOrderService(ledger, idempotency, queueSize, nil)
	defer orderService.Close()

	// Drain the fulfillment queue in background
	go func() {
		for range orderService.GetFulfillmentQueue() {
		}
	}()

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32
	var duplicateCount atomic.Int32
	var restocked atomic.Int32
	var restockRejected atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(orderID int) {
			defer wg.Done()

			_, err := orderService.Fulfill(ctx, fmt.Sprintf("stress-%d", orderID), product, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrDuplicateRequest):
				duplicateCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)

		// Every tenth order is submitted twice
		if i%10 == 0 {
			wg.Add(1)
			go func(orderID int) {
				defer wg.Done()
				_, err := orderService.Fulfill(ctx, fmt.Sprintf("stress-%d", orderID), product, 1)
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, service.ErrDuplicateRequest):
					duplicateCount.Add(1)
				default:
					failCount.Add(1)
				}
			}(i)
		}

		// Restocks race the fulfillments but may never breach the cap
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Add(product, maxLevel/5); err == nil {
				restocked.Add(1)
			} else if errors.Is(err, service.ErrInvalidTransaction) {
				restockRejected.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()
	final := ledger.GetAvailable(product)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Max Level:        %d\n", maxLevel)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duplicates:       %d\n", duplicateCount.Load())
	fmt.Printf("Restocks:         %d\n", restocked.Load())
	fmt.Printf("Restocks Refused: %d\n", restockRejected.Load())
	fmt.Printf("Final Stock:      %d\n", final)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if final < 0 || final > maxLevel {
		fmt.Printf("FAIL: final stock %d outside [0, %d]\n", final, maxLevel)
		os.Exit(1)
	}
	fmt.Println("PASS: stock stayed within [0, max level]")

	expected := int64(initialStock) + int64(restocked.Load())*(maxLevel/5) - int64(success)
	if final != expected {
		fmt.Printf("FAIL: expected final stock %d, got %d\n", expected, final)
		os.Exit(1)
	}
	fmt.Println("PASS: every accepted unit is accounted for")
}
