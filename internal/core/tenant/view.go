package tenant

import (
	"fmt"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// View reads an item together with its stock, the tenant's rules and the
// modifier groups it references. Item and stock are read under one lock;
// rules and groups come from immutable sets tagged with their own
// generation, so every revision in the result matches the data returned.
func (s *Store) View(id domain.TenantID, itemID string) (domain.ItemView, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.ItemView{}, err
	}
	slot, ok := p.slot(itemID)
	if !ok {
		return domain.ItemView{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	slot.mu.RLock()
	if slot.item == nil {
		slot.mu.RUnlock()
		return domain.ItemView{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	item := slot.item.Clone()
	record := slot.record
	slot.mu.RUnlock()

	rules := p.rules.Load()
	groups := p.groups.Load()

	view := domain.ItemView{
		TenantID: id,
		Item:     item,
		Record:   record,
		Rules:    rules.ordered,
		Revisions: domain.Revisions{
			Menu:      item.Revision,
			Stock:     record.Revision,
			Pricing:   rules.gen,
			Modifiers: groups.gen,
		},
	}
	for _, gid := range item.ModifierGroupIDs {
		if g, ok := groups.byID[gid]; ok {
			view.ModifierGroups = append(view.ModifierGroups, g.Clone())
		}
	}
	return view, nil
}

// Revisions reports the live revision set of an item.
func (s *Store) Revisions(id domain.TenantID, itemID string) (domain.Revisions, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.Revisions{}, err
	}
	slot, ok := p.slot(itemID)
	if !ok {
		return domain.Revisions{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	slot.mu.RLock()
	if slot.item == nil {
		slot.mu.RUnlock()
		return domain.Revisions{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	revs := domain.Revisions{Menu: slot.item.Revision, Stock: slot.record.Revision}
	slot.mu.RUnlock()

	revs.Pricing = p.rules.Load().gen
	revs.Modifiers = p.groups.Load().gen
	return revs, nil
}
