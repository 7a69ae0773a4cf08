package handler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/tenant-catalog/internal/core/cache"
	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/inventory"
	"github.com/rl1809/tenant-catalog/internal/core/pricing"
	"github.com/rl1809/tenant-catalog/internal/core/service"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
)

// newCatalog wires an in-memory catalog with one burger for mcdonalds.
func newCatalog(t *testing.T) *service.CatalogService {
	t.Helper()
	store := tenant.NewStore(tenant.Options{})
	c, err := cache.New(store, pricing.NewEngine(), cache.Config{}, zerolog.Nop())
	require.NoError(t, err)
	tracker := inventory.NewTracker(store, nil, zerolog.Nop())
	svc := service.NewCatalogService(store, tracker, c, nil, zerolog.Nop(), 16)
	t.Cleanup(svc.Close)

	ctx := context.Background()
	_, err = svc.UpsertMenuItem(ctx, "mcdonalds", domain.MenuItem{
		ID: "burger-001", Name: "Classic Burger", Category: "burgers",
		BasePrice: decimal.RequireFromString("8.00"), Active: true,
	})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, "mcdonalds", "burger-001", 6)
	require.NoError(t, err)
	_, err = svc.SetThreshold(ctx, "mcdonalds", "burger-001", 5)
	require.NoError(t, err)
	return svc
}
