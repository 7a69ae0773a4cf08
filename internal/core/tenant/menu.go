package tenant

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"sort"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// UpsertMenuItem stores item under the tenant and returns the stored
// version. Every upsert increments the item's revision, whatever the caller
// put in item.Revision.
func (s *Store) UpsertMenuItem(id domain.TenantID, item domain.MenuItem) (domain.MenuItem, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if err := item.Validate(); err != nil {
		return domain.MenuItem{}, err
	}

	groups := p.groups.Load()
	for _, gid := range item.ModifierGroupIDs {
		if _, ok := groups.byID[gid]; !ok {
			return domain.MenuItem{}, fmt.Errorf("%w: unknown modifier group %s", domain.ErrValidation, gid)
		}
	}

	slot := p.slotOrCreate(item.ID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	stored := item.Clone()
	stored.Revision = 1
	if slot.item != nil {
		stored.Revision = slot.item.Revision + 1
	}
	stored.UpdatedAt = s.now()
	slot.item = &stored
	if slot.record.ItemID == "" {
		slot.record.ItemID = item.ID
	}
	p.bump()

	return stored.Clone(), nil
}

// GetMenuItem fails with ErrItemNotFound when the item is absent, or
// inactive while includeInactive is false.
func (s *Store) GetMenuItem(id domain.TenantID, itemID string, includeInactive bool) (domain.MenuItem, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	slot, ok := p.slot(itemID)
	if !ok {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if slot.item == nil || (!slot.item.Active && !includeInactive) {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return slot.item.Clone(), nil
}

type ListFilter struct {
	Category        string
	IncludeInactive bool
	// Cursor resumes after the position it encodes. Empty starts at the top.
	Cursor string
}

type cursorPayload struct {
	Tenant   domain.TenantID `json:"t"`
	Category string          `json:"c"`
	ItemID   string          `json:"i"`
}

// EncodeCursor builds the opaque resume token for the item last seen.
func EncodeCursor(id domain.TenantID, last domain.MenuItem) string {
	raw, _ := json.Marshal(cursorPayload{Tenant: id, Category: last.Category, ItemID: last.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(id domain.TenantID, cursor string) (cursorPayload, error) {
	var c cursorPayload
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return c, fmt.Errorf("%w: malformed cursor", domain.ErrValidation)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: malformed cursor", domain.ErrValidation)
	}
	if c.Tenant != id {
		return c, fmt.Errorf("%w: cursor was issued for another tenant", domain.ErrValidation)
	}
	return c, nil
}

func itemLess(a, b domain.MenuItem) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	return a.ID < b.ID
}

// ListMenuItems returns the tenant's items ordered by category then id. The
// sequence is lazy: the partition is read when iteration starts, so the
// same sequence can be ranged again to observe newer data.
func (s *Store) ListMenuItems(id domain.TenantID, filter ListFilter) (iter.Seq[domain.MenuItem], error) {
	p, err := s.partition(id)
	if err != nil {
		return nil, err
	}

	var after *domain.MenuItem
	if filter.Cursor != "" {
		c, err := decodeCursor(id, filter.Cursor)
		if err != nil {
			return nil, err
		}
		after = &domain.MenuItem{ID: c.ItemID, Category: c.Category}
	}

	return func(yield func(domain.MenuItem) bool) {
		var items []domain.MenuItem
		p.items.Range(func(_, v any) bool {
			slot := v.(*itemSlot)
			slot.mu.RLock()
			item := slot.item
			if item != nil && (item.Active || filter.IncludeInactive) &&
				(filter.Category == "" || item.Category == filter.Category) &&
				(after == nil || itemLess(*after, *item)) {
				items = append(items, item.Clone())
			}
			slot.mu.RUnlock()
			return true
		})
		sort.Slice(items, func(i, j int) bool { return itemLess(items[i], items[j]) })

		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}, nil
}

// Page materializes up to limit items from the listing and returns the
// cursor of the next page, empty when the listing is exhausted.
func (s *Store) Page(id domain.TenantID, filter ListFilter, limit int) ([]domain.MenuItem, string, error) {
	seq, err := s.ListMenuItems(id, filter)
	if err != nil {
		return nil, "", err
	}

	var (
		page []domain.MenuItem
		more bool
	)
	for item := range seq {
		if limit > 0 && len(page) == limit {
			more = true
			break
		}
		page = append(page, item)
	}

	if !more || len(page) == 0 {
		return page, "", nil
	}
	return page, EncodeCursor(id, page[len(page)-1]), nil
}
