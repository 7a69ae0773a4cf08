package tenant

import (
	"fmt"
	"sort"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// InventoryMutation computes the next record from the current one. Returning
// an error aborts the update and leaves the record untouched.
type InventoryMutation func(current domain.InventoryRecord) (domain.InventoryRecord, error)

// CommitHook runs after a successful inventory update while the item is
// still locked, so hooks for one item observe commits in order. It must not
// block.
type CommitHook func(before, after domain.InventoryRecord)

// UpdateInventory serializes read-modify-write cycles on one item's stock.
func (s *Store) UpdateInventory(id domain.TenantID, itemID string, mutate InventoryMutation, onCommit CommitHook) (domain.InventoryRecord, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	slot, ok := p.slot(itemID)
	if !ok {
		return domain.InventoryRecord{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.item == nil {
		return domain.InventoryRecord{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	before := slot.record
	next, err := mutate(before)
	if err != nil {
		return before, err
	}
	if next.Quantity < 0 {
		return before, fmt.Errorf("%w: %s has %d", domain.ErrInsufficientStock, itemID, before.Quantity)
	}
	if next.LowStockThreshold < 0 {
		return before, fmt.Errorf("%w: negative low stock threshold", domain.ErrValidation)
	}

	next.ItemID = itemID
	next.Revision = before.Revision + 1
	next.UpdatedAt = s.now()
	slot.record = next
	p.bump()

	if onCommit != nil {
		onCommit(before, next)
	}
	return next, nil
}

// InventoryRecord returns the stock of a known item. Items that never had
// stock recorded report zero quantity.
func (s *Store) InventoryRecord(id domain.TenantID, itemID string) (domain.InventoryRecord, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	slot, ok := p.slot(itemID)
	if !ok {
		return domain.InventoryRecord{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if slot.item == nil {
		return domain.InventoryRecord{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return slot.record, nil
}

// ListInventory returns one record per menu item, ordered by item id.
func (s *Store) ListInventory(id domain.TenantID) ([]domain.InventoryRecord, error) {
	p, err := s.partition(id)
	if err != nil {
		return nil, err
	}

	var records []domain.InventoryRecord
	p.items.Range(func(_, v any) bool {
		slot := v.(*itemSlot)
		slot.mu.RLock()
		if slot.item != nil {
			records = append(records, slot.record)
		}
		slot.mu.RUnlock()
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ItemID < records[j].ItemID })
	return records, nil
}
