package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/tenant-catalog/internal/adapter/notifier"
	"github.com/rl1809/tenant-catalog/internal/core/cache"
	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/inventory"
	"github.com/rl1809/tenant-catalog/internal/core/pricing"
	"github.com/rl1809/tenant-catalog/internal/core/service"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
)

const (
	tenantID      = "stress-tenant"
	itemID        = "flash-item"
	initialStock  = 20
	threshold     = 5
	totalRequests = 2000
	workerCount   = 8
	queueSize     = 1024
)

// countingSink counts delivered alerts.
type countingSink struct {
	delivered atomic.Int64
}

func (s *countingSink) Notify(context.Context, domain.StockTransition) error {
	s.delivered.Add(1)
	return nil
}

func main() {
	ctx := context.Background()
	log := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	sink := &countingSink{}
	dispatcher := notifier.NewDispatcher(sink, workerCount, queueSize, log)

	store := tenant.NewStore(tenant.Options{})
	catalogCache, err := cache.New(store, pricing.NewEngine(), cache.Config{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build cache")
	}
	tracker := inventory.NewTracker(store, dispatcher, log)
	catalog := service.NewCatalogService(store, tracker, catalogCache, nil, log, queueSize)
	defer catalog.Close()

	if _, err := catalog.UpsertMenuItem(ctx, tenantID, domain.MenuItem{
		ID: itemID, Name: "Flash Item", Category: "deals",
		BasePrice: decimal.RequireFromString("9.99"), Active: true,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to create item")
	}
	if _, err := catalog.SetThreshold(ctx, tenantID, itemID, threshold); err != nil {
		log.Fatal().Err(err).Msg("failed to set threshold")
	}
	if _, err := catalog.AdjustStock(ctx, tenantID, itemID, initialStock); err != nil {
		log.Fatal().Err(err).Msg("failed to set stock")
	}

	// Counters
	var applied atomic.Int64
	var successCount atomic.Int32
	var rejectCount atomic.Int32
	var negativeSeen atomic.Bool

	// Two of every three requests take one unit, the third restocks one.
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			delta := int64(-1)
			if n%3 == 0 {
				delta = 1
			}

			entry, err := catalog.AdjustStock(ctx, tenantID, itemID, delta)
			switch {
			case err == nil:
				successCount.Add(1)
				applied.Add(delta)
				if entry.Quantity < 0 {
					negativeSeen.Store(true)
				}
			case errors.Is(err, domain.ErrInsufficientStock):
				rejectCount.Add(1)
			default:
				log.Error().Err(err).Msg("unexpected error")
			}

			if view, err := catalog.GetMenuItem(ctx, tenantID, itemID); err == nil && view.Quantity < 0 {
				negativeSeen.Store(true)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)
	dispatcher.Close()

	final, err := catalog.GetInventoryItem(ctx, tenantID, itemID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read final stock")
	}
	expected := initialStock + applied.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Applied:          %d\n", successCount.Load())
	fmt.Printf("Rejected:         %d\n", rejectCount.Load())
	fmt.Printf("Alerts Delivered: %d\n", sink.delivered.Load())
	fmt.Printf("Cache Stats:      %+v\n", catalog.CacheStats())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if final.Quantity == expected {
		fmt.Printf("PASS: final stock %d equals initial plus applied deltas\n", final.Quantity)
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", expected, final.Quantity)
		failed = true
	}

	if negativeSeen.Load() {
		fmt.Println("FAIL: a negative quantity was observed")
		failed = true
	} else {
		fmt.Println("PASS: stock never went negative")
	}

	if int(successCount.Load()+rejectCount.Load()) != totalRequests {
		fmt.Println("FAIL: some requests ended with an unexpected error")
		failed = true
	}

	if failed {
		os.Exit(1)
	}
}
