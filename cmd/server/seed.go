package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/service"
)

const demoTenant = "forkflow-demo"

type demoItem struct {
	item      domain.MenuItem
	quantity  int64
	threshold int64
}

var demoMenu = []demoItem{
	{
		item: domain.MenuItem{
			ID: "burger-001", Name: "Classic Burger", Category: "burgers",
			Description: "Beef patty with lettuce, tomato, onion",
			BasePrice:   decimal.RequireFromString("12.99"), Active: true,
		},
		quantity: 50, threshold: 10,
	},
	{
		item: domain.MenuItem{
			ID: "pizza-001", Name: "Margherita Pizza", Category: "pizza",
			Description: "Fresh mozzarella, basil, tomato sauce",
			BasePrice:   decimal.RequireFromString("14.99"), Active: true,
		},
		quantity: 30, threshold: 5,
	},
	{
		item: domain.MenuItem{
			ID: "salad-001", Name: "Caesar Salad", Category: "salads",
			Description: "Romaine, parmesan, croutons, caesar dressing",
			BasePrice:   decimal.RequireFromString("9.99"), Active: true,
		},
		quantity: 25, threshold: 5,
	},
}

// seedDemo fills the demo tenant unless it already has a menu, for example
// one restored from a snapshot. Returns whether anything was written.
func seedDemo(ctx context.Context, catalog *service.CatalogService) (bool, error) {
	page, err := catalog.GetMenu(ctx, demoTenant, service.MenuQuery{Limit: 1, IncludeInactive: true})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if len(page.Items) > 0 {
		return false, nil
	}

	for _, d := range demoMenu {
		if _, err := catalog.UpsertMenuItem(ctx, demoTenant, d.item); err != nil {
			return false, fmt.Errorf("seed %s: %w", d.item.ID, err)
		}
		if _, err := catalog.SetThreshold(ctx, demoTenant, d.item.ID, d.threshold); err != nil {
			return false, fmt.Errorf("seed %s: %w", d.item.ID, err)
		}
		if _, err := catalog.AdjustStock(ctx, demoTenant, d.item.ID, d.quantity); err != nil {
			return false, fmt.Errorf("seed %s: %w", d.item.ID, err)
		}
	}
	return true, nil
}
