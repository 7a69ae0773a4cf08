package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/pricing"
	"github.com/rl1809/tenant-catalog/internal/core/tenant"
)

const (
	DefaultTenantQuota = 1024
	DefaultMaxTenants  = 256
)

type Config struct {
	// TenantQuota bounds the entries one tenant may keep resident.
	TenantQuota int
	// MaxTenants bounds how many tenants hold a shard at once. The least
	// recently used tenant loses its shard first.
	MaxTenants int
	Now        func() time.Time
}

// CatalogCache serves merged menu, price and stock views. Entries are
// validated against the live revisions on every read instead of expiring on
// a timer, so a read never returns data older than the last mutation that
// returned before it.
type CatalogCache struct {
	store  *tenant.Store
	engine *pricing.Engine
	shards *lru.Cache[domain.TenantID, *lru.Cache[string, *domain.CatalogView]]
	quota  int
	now    func() time.Time
	log    zerolog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	stale  atomic.Uint64
}

type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Stale   uint64 `json:"stale"`
	Tenants int    `json:"tenants"`
}

func New(store *tenant.Store, engine *pricing.Engine, cfg Config, logger zerolog.Logger) (*CatalogCache, error) {
	if cfg.TenantQuota <= 0 {
		cfg.TenantQuota = DefaultTenantQuota
	}
	if cfg.MaxTenants <= 0 {
		cfg.MaxTenants = DefaultMaxTenants
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	shards, err := lru.New[domain.TenantID, *lru.Cache[string, *domain.CatalogView]](cfg.MaxTenants)
	if err != nil {
		return nil, fmt.Errorf("create shard index: %w", err)
	}

	return &CatalogCache{
		store:  store,
		engine: engine,
		shards: shards,
		quota:  cfg.TenantQuota,
		now:    cfg.Now,
		log:    logger.With().Str("component", "catalog_cache").Logger(),
	}, nil
}

func (c *CatalogCache) shard(id domain.TenantID) (*lru.Cache[string, *domain.CatalogView], error) {
	if sh, ok := c.shards.Get(id); ok {
		return sh, nil
	}
	fresh, err := lru.New[string, *domain.CatalogView](c.quota)
	if err != nil {
		return nil, fmt.Errorf("create tenant shard: %w", err)
	}
	prev, ok, evicted := c.shards.PeekOrAdd(id, fresh)
	if evicted {
		c.log.Debug().Str("tenant_id", string(id)).Msg("tenant shard evicted another tenant's shard")
	}
	if ok {
		return prev, nil
	}
	return fresh, nil
}

// Get returns the catalog view of one item, recomputing it when the cached
// entry was built from revisions that are no longer live or when a pricing
// window boundary has passed. Errors from the store are returned unchanged.
func (c *CatalogCache) Get(id domain.TenantID, itemID string) (domain.CatalogView, error) {
	live, err := c.store.Revisions(id, itemID)
	if err != nil {
		return domain.CatalogView{}, err
	}
	sh, err := c.shard(id)
	if err != nil {
		return domain.CatalogView{}, err
	}

	now := c.now()
	if cached, ok := sh.Get(itemID); ok {
		if cached.Revisions == live && !expired(cached, now) {
			c.hits.Add(1)
			return cloneView(*cached), nil
		}
		c.stale.Add(1)
	} else {
		c.misses.Add(1)
	}

	fresh, err := c.compute(id, itemID, now)
	if err != nil {
		return domain.CatalogView{}, err
	}
	sh.Add(itemID, &fresh)
	return cloneView(fresh), nil
}

func (c *CatalogCache) compute(id domain.TenantID, itemID string, now time.Time) (domain.CatalogView, error) {
	view, err := c.store.View(id, itemID)
	if err != nil {
		return domain.CatalogView{}, err
	}
	price := c.engine.Evaluate(view.Item, view.Rules, now)

	return domain.CatalogView{
		TenantID:       id,
		Item:           view.Item,
		ModifierGroups: view.ModifierGroups,
		EffectivePrice: price.Price,
		PromotionNotes: price.PromotionNotes,
		Diagnostics:    price.Diagnostics,
		Quantity:       view.Record.Quantity,
		Status:         view.Record.Status(),
		ComputedAt:     now,
		ValidUntil:     price.ValidUntil,
		Revisions:      view.Revisions,
	}, nil
}

// Invalidate drops one entry. Correctness never depends on it; it only
// spares the next reader the staleness check.
func (c *CatalogCache) Invalidate(id domain.TenantID, itemID string) {
	if sh, ok := c.shards.Peek(id); ok {
		sh.Remove(itemID)
	}
}

func (c *CatalogCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Stale:   c.stale.Load(),
		Tenants: c.shards.Len(),
	}
}

// Resident reports how many entries a tenant currently holds.
func (c *CatalogCache) Resident(id domain.TenantID) int {
	if sh, ok := c.shards.Peek(id); ok {
		return sh.Len()
	}
	return 0
}

func expired(v *domain.CatalogView, now time.Time) bool {
	return v.ValidUntil != nil && !now.Before(*v.ValidUntil)
}

func cloneView(v domain.CatalogView) domain.CatalogView {
	v.Item = v.Item.Clone()
	if v.ModifierGroups != nil {
		groups := make([]domain.ModifierGroup, len(v.ModifierGroups))
		for i, g := range v.ModifierGroups {
			groups[i] = g.Clone()
		}
		v.ModifierGroups = groups
	}
	if v.PromotionNotes != nil {
		v.PromotionNotes = append([]domain.PromotionNote(nil), v.PromotionNotes...)
	}
	if v.Diagnostics != nil {
		diags := make([]domain.Diagnostic, len(v.Diagnostics))
		for i, d := range v.Diagnostics {
			d.RuleIDs = append([]string(nil), d.RuleIDs...)
			diags[i] = d
		}
		v.Diagnostics = diags
	}
	if v.ValidUntil != nil {
		t := *v.ValidUntil
		v.ValidUntil = &t
	}
	return v
}
