package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rl1809/tenant-catalog/internal/core/cache"
	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/inventory"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
	"github.com/rl1809/tenant-catalog/internal/port"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// CatalogService is the only component that deals with raw tenant ids. It
// validates them, routes to the tenant's data and keeps no state of its own
// beyond the write-behind queue.
type CatalogService struct {
	store     *tenant.Store
	tracker   *inventory.Tracker
	cache     *cache.CatalogCache
	snapshots port.SnapshotRepository
	log       zerolog.Logger

	dirty   chan domain.TenantID
	pending sync.Map
	mu      sync.RWMutex
	closed  bool
}

func NewCatalogService(
	store *tenant.Store,
	tracker *inventory.Tracker,
	catalogCache *cache.CatalogCache,
	snapshots port.SnapshotRepository,
	logger zerolog.Logger,
	queueSize int,
) *CatalogService {
	return &CatalogService{
		store:     store,
		tracker:   tracker,
		cache:     catalogCache,
		snapshots: snapshots,
		log:       logger.With().Str("component", "catalog_service").Logger(),
		dirty:     make(chan domain.TenantID, queueSize),
	}
}

type MenuQuery struct {
	Category        string
	Cursor          string
	Limit           int
	IncludeInactive bool
}

type MenuPage struct {
	TenantID   domain.TenantID      `json:"tenant_id"`
	Items      []domain.CatalogView `json:"items"`
	Total      int                  `json:"total"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type InventoryEntry struct {
	domain.InventoryRecord
	Status     domain.StockStatus `json:"status"`
	IsLowStock bool               `json:"is_low_stock"`
}

type InventoryReport struct {
	TenantID      domain.TenantID  `json:"tenant_id"`
	Items         []InventoryEntry `json:"inventory"`
	LowStockItems []string         `json:"low_stock_items"`
}

func entryOf(rec domain.InventoryRecord) InventoryEntry {
	status := rec.Status()
	return InventoryEntry{
		InventoryRecord: rec,
		Status:          status,
		IsLowStock:      status != domain.StatusInStock,
	}
}

func (s *CatalogService) GetMenu(ctx context.Context, rawTenant string, q MenuQuery) (MenuPage, error) {
	id, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return MenuPage{}, s.fail("get menu", rawTenant, "", err)
	}

	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	items, next, err := s.store.Page(id, tenant.ListFilter{
		Category:        q.Category,
		IncludeInactive: q.IncludeInactive,
		Cursor:          q.Cursor,
	}, limit)
	if err != nil {
		return MenuPage{}, s.fail("get menu", rawTenant, "", err)
	}

	page := MenuPage{TenantID: id, Items: make([]domain.CatalogView, 0, len(items)), NextCursor: next}
	for _, item := range items {
		view, err := s.cache.Get(id, item.ID)
		if err != nil {
			return MenuPage{}, s.fail("get menu", rawTenant, item.ID, err)
		}
		page.Items = append(page.Items, view)
	}
	page.Total = len(page.Items)

	s.log.Debug().Str("tenant_id", rawTenant).Int("items", page.Total).Msg("menu served")
	return page, nil
}

// GetMenuItem serves the merged view of one active item.
func (s *CatalogService) GetMenuItem(ctx context.Context, rawTenant, itemID string) (domain.CatalogView, error) {
	id, err := s.parse(rawTenant, "item", itemID)
	if err != nil {
		return domain.CatalogView{}, s.fail("get menu item", rawTenant, itemID, err)
	}

	view, err := s.cache.Get(id, itemID)
	if err != nil {
		return domain.CatalogView{}, s.fail("get menu item", rawTenant, itemID, err)
	}
	if !view.Item.Active {
		return domain.CatalogView{}, s.fail("get menu item", rawTenant, itemID,
			fmt.Errorf("%w: %s is inactive", domain.ErrItemNotFound, itemID))
	}
	return view, nil
}

func (s *CatalogService) GetInventory(ctx context.Context, rawTenant string) (InventoryReport, error) {
	id, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return InventoryReport{}, s.fail("get inventory", rawTenant, "", err)
	}

	records, err := s.store.ListInventory(id)
	if err != nil {
		return InventoryReport{}, s.fail("get inventory", rawTenant, "", err)
	}

	report := InventoryReport{
		TenantID:      id,
		Items:         make([]InventoryEntry, 0, len(records)),
		LowStockItems: []string{},
	}
	for _, rec := range records {
		entry := entryOf(rec)
		report.Items = append(report.Items, entry)
		if entry.IsLowStock {
			report.LowStockItems = append(report.LowStockItems, rec.ItemID)
		}
	}

	s.log.Debug().Str("tenant_id", rawTenant).Int("low_stock", len(report.LowStockItems)).Msg("inventory served")
	return report, nil
}

func (s *CatalogService) GetInventoryItem(ctx context.Context, rawTenant, itemID string) (InventoryEntry, error) {
	id, err := s.parse(rawTenant, "item", itemID)
	if err != nil {
		return InventoryEntry{}, s.fail("get inventory item", rawTenant, itemID, err)
	}
	rec, err := s.store.InventoryRecord(id, itemID)
	if err != nil {
		return InventoryEntry{}, s.fail("get inventory item", rawTenant, itemID, err)
	}
	return entryOf(rec), nil
}

func (s *CatalogService) UpsertMenuItem(ctx context.Context, rawTenant string, item domain.MenuItem) (domain.MenuItem, error) {
	id, err := s.parse(rawTenant, "item", item.ID)
	if err != nil {
		return domain.MenuItem{}, s.fail("upsert menu item", rawTenant, item.ID, err)
	}

	stored, err := s.store.UpsertMenuItem(id, item)
	if err != nil {
		return domain.MenuItem{}, s.fail("upsert menu item", rawTenant, item.ID, err)
	}
	s.cache.Invalidate(id, item.ID)
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("item_id", item.ID).Uint64("revision", stored.Revision).Msg("menu item upserted")
	return stored, nil
}

func (s *CatalogService) UpsertModifierGroup(ctx context.Context, rawTenant string, group domain.ModifierGroup) (domain.ModifierGroup, error) {
	id, err := s.parse(rawTenant, "modifier group", group.ID)
	if err != nil {
		return domain.ModifierGroup{}, s.fail("upsert modifier group", rawTenant, group.ID, err)
	}

	stored, err := s.store.UpsertModifierGroup(id, group)
	if err != nil {
		return domain.ModifierGroup{}, s.fail("upsert modifier group", rawTenant, group.ID, err)
	}
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("group_id", group.ID).Msg("modifier group upserted")
	return stored, nil
}

func (s *CatalogService) AdjustStock(ctx context.Context, rawTenant, itemID string, delta int64) (InventoryEntry, error) {
	id, err := s.parse(rawTenant, "item", itemID)
	if err != nil {
		return InventoryEntry{}, s.fail("adjust stock", rawTenant, itemID, err)
	}

	rec, err := s.tracker.AdjustStock(ctx, id, itemID, delta)
	if err != nil {
		return InventoryEntry{}, s.fail("adjust stock", rawTenant, itemID, err)
	}
	s.cache.Invalidate(id, itemID)
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("item_id", itemID).
		Int64("delta", delta).Int64("quantity", rec.Quantity).Msg("stock adjusted")
	return entryOf(rec), nil
}

func (s *CatalogService) SetThreshold(ctx context.Context, rawTenant, itemID string, threshold int64) (InventoryEntry, error) {
	id, err := s.parse(rawTenant, "item", itemID)
	if err != nil {
		return InventoryEntry{}, s.fail("set threshold", rawTenant, itemID, err)
	}

	rec, err := s.tracker.SetThreshold(ctx, id, itemID, threshold)
	if err != nil {
		return InventoryEntry{}, s.fail("set threshold", rawTenant, itemID, err)
	}
	s.cache.Invalidate(id, itemID)
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("item_id", itemID).Int64("threshold", threshold).Msg("threshold set")
	return entryOf(rec), nil
}

// UpsertPricingRule may reprice any number of items; cached entries are not
// touched and get recomputed on their next read.
func (s *CatalogService) UpsertPricingRule(ctx context.Context, rawTenant string, rule domain.PricingRule) (domain.PricingRule, error) {
	id, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return domain.PricingRule{}, s.fail("upsert pricing rule", rawTenant, rule.ID, err)
	}

	stored, err := s.store.UpsertPricingRule(id, rule)
	if err != nil {
		return domain.PricingRule{}, s.fail("upsert pricing rule", rawTenant, rule.ID, err)
	}
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("rule_id", rule.ID).Str("kind", string(rule.Kind)).Msg("pricing rule upserted")
	return stored, nil
}

func (s *CatalogService) DeactivatePricingRule(ctx context.Context, rawTenant, ruleID string) (domain.PricingRule, error) {
	id, err := s.parse(rawTenant, "rule", ruleID)
	if err != nil {
		return domain.PricingRule{}, s.fail("deactivate pricing rule", rawTenant, ruleID, err)
	}

	rule, err := s.store.DeactivatePricingRule(id, ruleID)
	if err != nil {
		return domain.PricingRule{}, s.fail("deactivate pricing rule", rawTenant, ruleID, err)
	}
	s.markDirty(id)

	s.log.Info().Str("tenant_id", rawTenant).Str("rule_id", ruleID).Msg("pricing rule deactivated")
	return rule, nil
}

func (s *CatalogService) PricingRules(ctx context.Context, rawTenant string) ([]domain.PricingRule, error) {
	id, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return nil, s.fail("list pricing rules", rawTenant, "", err)
	}
	rules, err := s.store.PricingRules(id)
	if err != nil {
		return nil, s.fail("list pricing rules", rawTenant, "", err)
	}
	return rules, nil
}

func (s *CatalogService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *CatalogService) parse(rawTenant, kind, entityID string) (domain.TenantID, error) {
	id, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return "", err
	}
	if err := domain.ValidateEntityID(kind, entityID); err != nil {
		return "", err
	}
	return id, nil
}

// fail logs err once at a level matching its kind and wraps it with the
// operation name. The sentinel stays reachable through errors.Is.
func (s *CatalogService) fail(op, rawTenant, entityID string, err error) error {
	kind := domain.KindOf(err)
	event := s.log.Warn()
	if kind == domain.KindInternal {
		event = s.log.Error()
	}
	event.Err(err).Str("op", op).Str("tenant_id", rawTenant).Str("entity_id", entityID).
		Str("kind", string(kind)).Msg("request failed")
	return fmt.Errorf("%s: %w", op, err)
}

// Bootstrap loads the persisted snapshot of each tenant before traffic is
// served. Tenants without a snapshot are provisioned empty.
func (s *CatalogService) Bootstrap(ctx context.Context, rawTenants []string) error {
	for _, raw := range rawTenants {
		id, err := domain.ParseTenantID(raw)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}

		if s.snapshots == nil {
			s.store.CreateTenant(id)
			continue
		}

		snap, err := s.snapshots.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("bootstrap %s: load snapshot: %w", id, err)
		}
		if snap == nil {
			s.store.CreateTenant(id)
			s.log.Info().Str("tenant_id", raw).Msg("no snapshot, tenant starts empty")
			continue
		}
		if err := s.store.Restore(id, *snap); err != nil {
			return fmt.Errorf("bootstrap %s: restore: %w", id, err)
		}
		s.log.Info().Str("tenant_id", raw).
			Uint64("generation", snap.Generation).
			Int("items", len(snap.MenuItems)).
			Msg("tenant restored from snapshot")
	}
	return nil
}

// Flush saves the current snapshot of one tenant. A snapshot already
// superseded in storage is not an error.
func (s *CatalogService) Flush(ctx context.Context, id domain.TenantID) error {
	if s.snapshots == nil {
		return nil
	}
	s.pending.Delete(id)

	snap, err := s.store.Snapshot(id)
	if err != nil {
		return fmt.Errorf("flush %s: %w", id, err)
	}
	if err := s.snapshots.Save(ctx, id, snap); err != nil {
		if errors.Is(err, domain.ErrStaleSnapshot) {
			s.log.Debug().Str("tenant_id", string(id)).Uint64("generation", snap.Generation).Msg("snapshot already persisted")
			return nil
		}
		return fmt.Errorf("flush %s: %w", id, err)
	}
	s.log.Debug().Str("tenant_id", string(id)).Uint64("generation", snap.Generation).Msg("snapshot persisted")
	return nil
}

// FlushAll saves every provisioned tenant and returns the first failure.
// It runs at shutdown to catch tenants whose dirty mark was dropped.
func (s *CatalogService) FlushAll(ctx context.Context) error {
	var first error
	for _, id := range s.store.TenantIDs() {
		if err := s.Flush(ctx, id); err != nil {
			s.log.Error().Err(err).Str("tenant_id", string(id)).Msg("final flush failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// DirtyTenants yields each mutated tenant at most once until it is flushed.
func (s *CatalogService) DirtyTenants() <-chan domain.TenantID {
	return s.dirty
}

func (s *CatalogService) markDirty(id domain.TenantID) {
	if s.snapshots == nil {
		return
	}
	if _, queued := s.pending.LoadOrStore(id, struct{}{}); queued {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.pending.Delete(id)
		return
	}
	select {
	case s.dirty <- id:
	default:
		s.pending.Delete(id)
		s.log.Warn().Str("tenant_id", string(id)).Msg("write-behind queue full, tenant will be saved on its next mutation")
	}
}

func (s *CatalogService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.dirty)
	}
}
