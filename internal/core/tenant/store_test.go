package tenant

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

func burger(id string) domain.MenuItem {
	return domain.MenuItem{
		ID:        id,
		Name:      "Classic Burger",
		Category:  "burgers",
		BasePrice: decimal.RequireFromString("8.00"),
		Active:    true,
	}
}

func TestGetOrCreateTenant_Idempotent(t *testing.T) {
	store := NewStore(Options{})

	p1, err := store.GetOrCreateTenant("mcdonalds")
	require.NoError(t, err)
	p2, err := store.GetOrCreateTenant("mcdonalds")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, domain.TenantID("mcdonalds"), p1.ID())
	assert.Zero(t, p1.Generation())
}

func TestTenantIDs_Sorted(t *testing.T) {
	store := NewStore(Options{})
	store.CreateTenant("mcdonalds")
	store.CreateTenant("chipotle")
	store.CreateTenant("mcdonalds")

	assert.Equal(t, []domain.TenantID{"chipotle", "mcdonalds"}, store.TenantIDs())
}

func TestStrictMode_UnknownTenant(t *testing.T) {
	store := NewStore(Options{Strict: true})

	_, err := store.GetMenuItem("ghost", "burger-001", false)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	store.CreateTenant("ghost")
	_, err = store.GetMenuItem("ghost", "burger-001", false)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestUpsertMenuItem_RoundTripIncrementsRevision(t *testing.T) {
	store := NewStore(Options{})
	item := burger("burger-001")
	item.Description = "Beef patty with lettuce"

	first, err := store.UpsertMenuItem("mcdonalds", item)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Revision)

	got, err := store.GetMenuItem("mcdonalds", "burger-001", false)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.Description, got.Description)
	assert.Equal(t, item.Category, got.Category)
	assert.True(t, item.BasePrice.Equal(got.BasePrice))
	assert.Equal(t, item.Active, got.Active)

	item.Name = "Double Burger"
	item.Revision = 99 // ignored
	second, err := store.UpsertMenuItem("mcdonalds", item)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Revision)

	got, err = store.GetMenuItem("mcdonalds", "burger-001", false)
	require.NoError(t, err)
	assert.Equal(t, "Double Burger", got.Name)
	assert.Greater(t, got.Revision, first.Revision)
}

func TestUpsertMenuItem_UnknownModifierGroup(t *testing.T) {
	store := NewStore(Options{})
	item := burger("burger-001")
	item.ModifierGroupIDs = []string{"sauces"}

	_, err := store.UpsertMenuItem("mcdonalds", item)
	assert.ErrorIs(t, err, domain.ErrValidation)

	gen, err := store.Generation("mcdonalds")
	require.NoError(t, err)
	assert.Zero(t, gen, "failed upsert must not bump the generation")

	_, err = store.UpsertModifierGroup("mcdonalds", domain.ModifierGroup{
		ID: "sauces", Name: "Sauces", MaxSelect: 2,
		Modifiers: []domain.Modifier{{ID: "bbq", Name: "BBQ", PriceDelta: decimal.RequireFromString("0.50")}},
	})
	require.NoError(t, err)

	_, err = store.UpsertMenuItem("mcdonalds", item)
	assert.NoError(t, err)
}

func TestGetMenuItem_InactiveExcluded(t *testing.T) {
	store := NewStore(Options{})
	item := burger("burger-001")
	item.Active = false
	_, err := store.UpsertMenuItem("mcdonalds", item)
	require.NoError(t, err)

	_, err = store.GetMenuItem("mcdonalds", "burger-001", false)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	got, err := store.GetMenuItem("mcdonalds", "burger-001", true)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestTenantIsolation_SameItemID(t *testing.T) {
	store := NewStore(Options{})

	mc := burger("burger-001")
	mc.Name = "Big Mac"
	mc.BasePrice = decimal.RequireFromString("5.69")
	chip := burger("burger-001")
	chip.Name = "Burrito Burger"
	chip.BasePrice = decimal.RequireFromString("11.25")

	_, err := store.UpsertMenuItem("mcdonalds", mc)
	require.NoError(t, err)
	_, err = store.UpsertMenuItem("chipotle", chip)
	require.NoError(t, err)

	_, err = store.UpdateInventory("mcdonalds", "burger-001", func(r domain.InventoryRecord) (domain.InventoryRecord, error) {
		r.Quantity = 7
		return r, nil
	}, nil)
	require.NoError(t, err)

	gotMC, err := store.GetMenuItem("mcdonalds", "burger-001", false)
	require.NoError(t, err)
	gotChip, err := store.GetMenuItem("chipotle", "burger-001", false)
	require.NoError(t, err)

	assert.Equal(t, "Big Mac", gotMC.Name)
	assert.Equal(t, "Burrito Burger", gotChip.Name)
	assert.True(t, gotChip.BasePrice.Equal(decimal.RequireFromString("11.25")))

	recMC, err := store.InventoryRecord("mcdonalds", "burger-001")
	require.NoError(t, err)
	recChip, err := store.InventoryRecord("chipotle", "burger-001")
	require.NoError(t, err)
	assert.Equal(t, int64(7), recMC.Quantity)
	assert.Equal(t, int64(0), recChip.Quantity)

	_, err = store.GetMenuItem("wendys", "burger-001", false)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func seedMenu(t *testing.T, store *Store, tenant domain.TenantID) {
	t.Helper()
	items := []domain.MenuItem{
		{ID: "salad-001", Name: "Caesar", Category: "salads", BasePrice: decimal.RequireFromString("9.99"), Active: true},
		{ID: "burger-002", Name: "Cheese", Category: "burgers", BasePrice: decimal.RequireFromString("9.50"), Active: true},
		{ID: "pizza-001", Name: "Margherita", Category: "pizza", BasePrice: decimal.RequireFromString("14.99"), Active: true},
		{ID: "burger-001", Name: "Classic", Category: "burgers", BasePrice: decimal.RequireFromString("12.99"), Active: true},
		{ID: "burger-003", Name: "Retired", Category: "burgers", BasePrice: decimal.RequireFromString("1.00"), Active: false},
	}
	for _, item := range items {
		_, err := store.UpsertMenuItem(tenant, item)
		require.NoError(t, err)
	}
}

func ids(items []domain.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestListMenuItems_OrderedByCategoryThenID(t *testing.T) {
	store := NewStore(Options{})
	seedMenu(t, store, "forkflow-demo")

	seq, err := store.ListMenuItems("forkflow-demo", ListFilter{})
	require.NoError(t, err)

	var got []domain.MenuItem
	for item := range seq {
		got = append(got, item)
	}
	assert.Equal(t, []string{"burger-001", "burger-002", "pizza-001", "salad-001"}, ids(got))

	seq, err = store.ListMenuItems("forkflow-demo", ListFilter{Category: "burgers", IncludeInactive: true})
	require.NoError(t, err)
	got = got[:0]
	for item := range seq {
		got = append(got, item)
	}
	assert.Equal(t, []string{"burger-001", "burger-002", "burger-003"}, ids(got))
}

func TestListMenuItems_IsLazy(t *testing.T) {
	store := NewStore(Options{})
	seq, err := store.ListMenuItems("forkflow-demo", ListFilter{})
	require.NoError(t, err)

	seedMenu(t, store, "forkflow-demo")

	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 4, count, "items added after the call are visible when ranging")
}

func TestPage_CursorRestartable(t *testing.T) {
	store := NewStore(Options{})
	seedMenu(t, store, "forkflow-demo")

	page1, next, err := store.Page("forkflow-demo", ListFilter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"burger-001", "burger-002"}, ids(page1))
	require.NotEmpty(t, next)

	page2, last, err := store.Page("forkflow-demo", ListFilter{Cursor: next}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza-001", "salad-001"}, ids(page2))
	assert.Empty(t, last)

	again, _, err := store.Page("forkflow-demo", ListFilter{Cursor: next}, 2)
	require.NoError(t, err)
	assert.Equal(t, ids(page2), ids(again))

	mid := EncodeCursor("forkflow-demo", page1[0])
	fromMid, _, err := store.Page("forkflow-demo", ListFilter{Cursor: mid}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"burger-002", "pizza-001", "salad-001"}, ids(fromMid))
}

func TestPage_CursorFromOtherTenantRejected(t *testing.T) {
	store := NewStore(Options{})
	seedMenu(t, store, "mcdonalds")
	seedMenu(t, store, "chipotle")

	_, next, err := store.Page("mcdonalds", ListFilter{}, 1)
	require.NoError(t, err)

	_, _, err = store.Page("chipotle", ListFilter{Cursor: next}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = store.Page("chipotle", ListFilter{Cursor: "%%%"}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateInventory_FailureLeavesStateUnchanged(t *testing.T) {
	store := NewStore(Options{})
	_, err := store.UpsertMenuItem("mcdonalds", burger("burger-001"))
	require.NoError(t, err)

	rec, err := store.UpdateInventory("mcdonalds", "burger-001", func(r domain.InventoryRecord) (domain.InventoryRecord, error) {
		r.Quantity = 4
		return r, nil
	}, nil)
	require.NoError(t, err)
	genBefore, _ := store.Generation("mcdonalds")

	hooked := false
	_, err = store.UpdateInventory("mcdonalds", "burger-001", func(r domain.InventoryRecord) (domain.InventoryRecord, error) {
		r.Quantity -= 100
		return r, nil
	}, func(_, _ domain.InventoryRecord) { hooked = true })
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, hooked)

	after, err := store.InventoryRecord("mcdonalds", "burger-001")
	require.NoError(t, err)
	assert.Equal(t, rec, after)
	genAfter, _ := store.Generation("mcdonalds")
	assert.Equal(t, genBefore, genAfter)

	_, err = store.UpdateInventory("mcdonalds", "fries-001", func(r domain.InventoryRecord) (domain.InventoryRecord, error) {
		return r, nil
	}, nil)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPricingRules_UpsertAndDeactivate(t *testing.T) {
	store := NewStore(Options{})

	_, err := store.UpsertPricingRule("mcdonalds", domain.PricingRule{
		ID: "bad", Scope: domain.RuleScope{Kind: domain.ScopeAll},
		Kind: domain.RulePercentageDiscount, Percent: decimal.RequireFromString("1.5"), Active: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRule)

	_, err = store.UpsertPricingRule("mcdonalds", domain.PricingRule{
		ID: "happy-hour", Scope: domain.RuleScope{Kind: domain.ScopeCategory, Target: "burgers"},
		Kind: domain.RulePercentageDiscount, Percent: decimal.RequireFromString("0.2"), Active: true,
	})
	require.NoError(t, err)

	_, err = store.UpsertMenuItem("mcdonalds", burger("burger-001"))
	require.NoError(t, err)
	before, err := store.Revisions("mcdonalds", "burger-001")
	require.NoError(t, err)

	rule, err := store.DeactivatePricingRule("mcdonalds", "happy-hour")
	require.NoError(t, err)
	assert.False(t, rule.Active)

	after, err := store.Revisions("mcdonalds", "burger-001")
	require.NoError(t, err)
	assert.Greater(t, after.Pricing, before.Pricing)
	assert.Equal(t, before.Menu, after.Menu)

	_, err = store.DeactivatePricingRule("mcdonalds", "missing")
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)

	rules, err := store.PricingRules("mcdonalds")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Active)
}

func TestView_ResolvesModifierGroupsByReference(t *testing.T) {
	store := NewStore(Options{})
	_, err := store.UpsertModifierGroup("mcdonalds", domain.ModifierGroup{
		ID: "sides", Name: "Sides", MaxSelect: 1,
		Modifiers: []domain.Modifier{{ID: "fries", Name: "Fries", PriceDelta: decimal.RequireFromString("2.00")}},
	})
	require.NoError(t, err)

	item := burger("burger-001")
	item.ModifierGroupIDs = []string{"sides"}
	_, err = store.UpsertMenuItem("mcdonalds", item)
	require.NoError(t, err)

	_, err = store.UpsertModifierGroup("mcdonalds", domain.ModifierGroup{
		ID: "sides", Name: "Sides & Extras", MaxSelect: 2,
		Modifiers: []domain.Modifier{{ID: "fries", Name: "Fries", PriceDelta: decimal.RequireFromString("2.50")}},
	})
	require.NoError(t, err)

	view, err := store.View("mcdonalds", "burger-001")
	require.NoError(t, err)
	require.Len(t, view.ModifierGroups, 1)
	assert.Equal(t, "Sides & Extras", view.ModifierGroups[0].Name)
	assert.Equal(t, uint64(2), view.Revisions.Modifiers)
	assert.Equal(t, uint64(1), view.Revisions.Menu)
}

func TestSnapshotRestore(t *testing.T) {
	src := NewStore(Options{})
	seedMenu(t, src, "forkflow-demo")
	_, err := src.UpdateInventory("forkflow-demo", "pizza-001", func(r domain.InventoryRecord) (domain.InventoryRecord, error) {
		r.Quantity, r.LowStockThreshold = 30, 5
		return r, nil
	}, nil)
	require.NoError(t, err)
	_, err = src.UpsertPricingRule("forkflow-demo", domain.PricingRule{
		ID: "all-5", Scope: domain.RuleScope{Kind: domain.ScopeAll},
		Kind: domain.RuleFixedDiscount, Amount: decimal.RequireFromString("0.50"), Active: true,
	})
	require.NoError(t, err)

	snap, err := src.Snapshot("forkflow-demo")
	require.NoError(t, err)
	assert.Len(t, snap.MenuItems, 5)
	assert.Len(t, snap.Inventory, 1)
	assert.Len(t, snap.PricingRules, 1)

	dst := NewStore(Options{Strict: true})
	require.NoError(t, dst.Restore("forkflow-demo", snap))

	rec, err := dst.InventoryRecord("forkflow-demo", "pizza-001")
	require.NoError(t, err)
	assert.Equal(t, int64(30), rec.Quantity)
	gen, err := dst.Generation("forkflow-demo")
	require.NoError(t, err)
	assert.Equal(t, snap.Generation, gen)

	updated, err := dst.UpsertMenuItem("forkflow-demo", burger("burger-001"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Revision)

	err = dst.Restore("forkflow-demo", snap)
	assert.ErrorIs(t, err, domain.ErrValidation, "restore over live data is refused")

	err = dst.Restore("other", snap)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpsertMenuItem_ConcurrentRevisionsAreSerialized(t *testing.T) {
	store := NewStore(Options{})
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			item := burger("burger-001")
			item.Name = fmt.Sprintf("Burger v%d", n)
			if _, err := store.UpsertMenuItem("mcdonalds", item); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.GetMenuItem("mcdonalds", "burger-001", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), got.Revision)

	gen, err := store.Generation("mcdonalds")
	require.NoError(t, err)
	assert.Equal(t, uint64(writers), gen)
}

func TestGetModifierGroup(t *testing.T) {
	store := NewStore(Options{})
	_, err := store.UpsertModifierGroup("chipotle", domain.ModifierGroup{
		ID: "salsas", Name: "Salsas", MaxSelect: 2,
		Modifiers: []domain.Modifier{{ID: "mild", Name: "Mild"}, {ID: "hot", Name: "Hot"}},
	})
	require.NoError(t, err)

	group, err := store.GetModifierGroup("chipotle", "salsas")
	require.NoError(t, err)
	assert.Len(t, group.Modifiers, 2)

	group.Modifiers[0].Name = "tampered"
	again, err := store.GetModifierGroup("chipotle", "salsas")
	require.NoError(t, err)
	assert.Equal(t, "Mild", again.Modifiers[0].Name)

	_, err = store.GetModifierGroup("mcdonalds", "salsas")
	assert.Error(t, err)
}
