package tenant

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

type Options struct {
	// Strict disables auto-creation: unknown tenants fail with ErrTenantNotFound.
	Strict bool
	// Now overrides the clock used for UpdatedAt stamps.
	Now func() time.Time
}

// Store partitions catalog data by tenant. Partitions share no mutable
// state and no read spans more than one tenant's data.
type Store struct {
	partitions sync.Map // domain.TenantID -> *Partition
	strict     bool
	now        func() time.Time
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{strict: opts.Strict, now: now}
}

type Partition struct {
	id domain.TenantID

	items sync.Map // item id -> *itemSlot

	rulesMu sync.Mutex
	rules   atomic.Pointer[ruleSet]

	groupsMu sync.Mutex
	groups   atomic.Pointer[groupSet]

	generation atomic.Uint64
}

type itemSlot struct {
	mu     sync.RWMutex
	item   *domain.MenuItem
	record domain.InventoryRecord
}

type ruleSet struct {
	gen     uint64
	byID    map[string]domain.PricingRule
	ordered []domain.PricingRule
}

type groupSet struct {
	gen  uint64
	byID map[string]domain.ModifierGroup
}

func newPartition(id domain.TenantID) *Partition {
	p := &Partition{id: id}
	p.rules.Store(&ruleSet{byID: map[string]domain.PricingRule{}})
	p.groups.Store(&groupSet{byID: map[string]domain.ModifierGroup{}})
	return p
}

func (p *Partition) ID() domain.TenantID { return p.id }

func (p *Partition) Generation() uint64 { return p.generation.Load() }

func (p *Partition) bump() { p.generation.Add(1) }

// CreateTenant provisions a partition explicitly. It is idempotent.
func (s *Store) CreateTenant(id domain.TenantID) *Partition {
	v, _ := s.partitions.LoadOrStore(id, newPartition(id))
	return v.(*Partition)
}

// GetOrCreateTenant returns the tenant partition, creating an empty one on
// first access unless the store is strict.
func (s *Store) GetOrCreateTenant(id domain.TenantID) (*Partition, error) {
	return s.partition(id)
}

func (s *Store) partition(id domain.TenantID) (*Partition, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if v, ok := s.partitions.Load(id); ok {
		return v.(*Partition), nil
	}
	if s.strict {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}
	return s.CreateTenant(id), nil
}

// TenantIDs lists the provisioned tenants in id order.
func (s *Store) TenantIDs() []domain.TenantID {
	var ids []domain.TenantID
	s.partitions.Range(func(k, _ any) bool {
		ids = append(ids, k.(domain.TenantID))
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Generation is bumped by every successful mutation of the tenant.
func (s *Store) Generation(id domain.TenantID) (uint64, error) {
	p, err := s.partition(id)
	if err != nil {
		return 0, err
	}
	return p.Generation(), nil
}

func (p *Partition) slot(itemID string) (*itemSlot, bool) {
	v, ok := p.items.Load(itemID)
	if !ok {
		return nil, false
	}
	return v.(*itemSlot), true
}

func (p *Partition) slotOrCreate(itemID string) *itemSlot {
	v, _ := p.items.LoadOrStore(itemID, &itemSlot{})
	return v.(*itemSlot)
}

// Snapshot captures the tenant for the persistence collaborator. The
// generation is read first, so the data is never older than the
// generation it is stamped with.
func (s *Store) Snapshot(id domain.TenantID) (domain.TenantSnapshot, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.TenantSnapshot{}, err
	}

	snap := domain.TenantSnapshot{
		TenantID:   id,
		Generation: p.Generation(),
		TakenAt:    s.now(),
	}

	p.items.Range(func(_, v any) bool {
		slot := v.(*itemSlot)
		slot.mu.RLock()
		if slot.item != nil {
			snap.MenuItems = append(snap.MenuItems, slot.item.Clone())
			if slot.record.Revision > 0 {
				snap.Inventory = append(snap.Inventory, slot.record)
			}
		}
		slot.mu.RUnlock()
		return true
	})
	sort.Slice(snap.MenuItems, func(i, j int) bool { return snap.MenuItems[i].ID < snap.MenuItems[j].ID })
	sort.Slice(snap.Inventory, func(i, j int) bool { return snap.Inventory[i].ItemID < snap.Inventory[j].ItemID })

	for _, g := range p.groups.Load().byID {
		snap.ModifierGroups = append(snap.ModifierGroups, g.Clone())
	}
	sort.Slice(snap.ModifierGroups, func(i, j int) bool { return snap.ModifierGroups[i].ID < snap.ModifierGroups[j].ID })

	snap.PricingRules = append(snap.PricingRules, p.rules.Load().ordered...)
	return snap, nil
}

// Restore loads a snapshot into a tenant that has not been mutated yet.
// Revisions are preserved so later mutations keep increasing them.
func (s *Store) Restore(id domain.TenantID, snap domain.TenantSnapshot) error {
	if snap.TenantID != "" && snap.TenantID != id {
		return fmt.Errorf("%w: snapshot belongs to tenant %s", domain.ErrValidation, snap.TenantID)
	}

	fresh := newPartition(id)
	if err := fresh.load(snap); err != nil {
		return err
	}

	v, loaded := s.partitions.LoadOrStore(id, fresh)
	if !loaded {
		return nil
	}
	existing := v.(*Partition)
	if existing.Generation() != 0 {
		return fmt.Errorf("%w: tenant %s already holds data", domain.ErrValidation, id)
	}
	if !s.partitions.CompareAndSwap(id, existing, fresh) {
		return fmt.Errorf("%w: tenant %s changed during restore", domain.ErrValidation, id)
	}
	return nil
}

func (p *Partition) load(snap domain.TenantSnapshot) error {
	groups := make(map[string]domain.ModifierGroup, len(snap.ModifierGroups))
	for _, g := range snap.ModifierGroups {
		if err := g.Validate(); err != nil {
			return err
		}
		groups[g.ID] = g.Clone()
	}

	for _, item := range snap.MenuItems {
		if err := item.Validate(); err != nil {
			return err
		}
		for _, gid := range item.ModifierGroupIDs {
			if _, ok := groups[gid]; !ok {
				return fmt.Errorf("%w: item %s references unknown modifier group %s", domain.ErrValidation, item.ID, gid)
			}
		}
		stored := item.Clone()
		if stored.Revision == 0 {
			stored.Revision = 1
		}
		p.items.Store(item.ID, &itemSlot{
			item:   &stored,
			record: domain.InventoryRecord{ItemID: item.ID},
		})
	}

	for _, rec := range snap.Inventory {
		slot, ok := p.slot(rec.ItemID)
		if !ok {
			return fmt.Errorf("%w: inventory for unknown item %s", domain.ErrItemNotFound, rec.ItemID)
		}
		if rec.Quantity < 0 || rec.LowStockThreshold < 0 {
			return fmt.Errorf("%w: inventory for %s is negative", domain.ErrValidation, rec.ItemID)
		}
		if rec.Revision == 0 {
			rec.Revision = 1
		}
		slot.record = rec
	}

	rules := make(map[string]domain.PricingRule, len(snap.PricingRules))
	for _, r := range snap.PricingRules {
		if err := r.Validate(); err != nil {
			return err
		}
		rules[r.ID] = r
	}

	p.groups.Store(&groupSet{gen: 1, byID: groups})
	p.rules.Store(newRuleSet(1, rules))
	p.generation.Store(snap.Generation)
	return nil
}
