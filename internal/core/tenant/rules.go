package tenant

import (
	"fmt"
	"maps"
	"sort"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

func newRuleSet(gen uint64, byID map[string]domain.PricingRule) *ruleSet {
	ordered := make([]domain.PricingRule, 0, len(byID))
	for _, r := range byID {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &ruleSet{gen: gen, byID: byID, ordered: ordered}
}

// UpsertPricingRule validates and stores a rule, replacing any rule with the
// same id. Invalid rules never reach the engine.
func (s *Store) UpsertPricingRule(id domain.TenantID, rule domain.PricingRule) (domain.PricingRule, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.PricingRule{}, err
	}
	if err := rule.Validate(); err != nil {
		return domain.PricingRule{}, err
	}

	p.rulesMu.Lock()
	defer p.rulesMu.Unlock()

	cur := p.rules.Load()
	next := maps.Clone(cur.byID)
	next[rule.ID] = rule
	p.rules.Store(newRuleSet(cur.gen+1, next))
	p.bump()
	return rule, nil
}

func (s *Store) DeactivatePricingRule(id domain.TenantID, ruleID string) (domain.PricingRule, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.PricingRule{}, err
	}

	p.rulesMu.Lock()
	defer p.rulesMu.Unlock()

	cur := p.rules.Load()
	rule, ok := cur.byID[ruleID]
	if !ok {
		return domain.PricingRule{}, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, ruleID)
	}
	if !rule.Active {
		return rule, nil
	}

	rule.Active = false
	next := maps.Clone(cur.byID)
	next[ruleID] = rule
	p.rules.Store(newRuleSet(cur.gen+1, next))
	p.bump()
	return rule, nil
}

// PricingRules lists every rule of the tenant, active or not, by id.
func (s *Store) PricingRules(id domain.TenantID) ([]domain.PricingRule, error) {
	p, err := s.partition(id)
	if err != nil {
		return nil, err
	}
	return append([]domain.PricingRule(nil), p.rules.Load().ordered...), nil
}

func (s *Store) UpsertModifierGroup(id domain.TenantID, group domain.ModifierGroup) (domain.ModifierGroup, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.ModifierGroup{}, err
	}
	if err := group.Validate(); err != nil {
		return domain.ModifierGroup{}, err
	}

	p.groupsMu.Lock()
	defer p.groupsMu.Unlock()

	cur := p.groups.Load()
	next := maps.Clone(cur.byID)
	next[group.ID] = group.Clone()
	p.groups.Store(&groupSet{gen: cur.gen + 1, byID: next})
	p.bump()
	return group.Clone(), nil
}

func (s *Store) GetModifierGroup(id domain.TenantID, groupID string) (domain.ModifierGroup, error) {
	p, err := s.partition(id)
	if err != nil {
		return domain.ModifierGroup{}, err
	}
	g, ok := p.groups.Load().byID[groupID]
	if !ok {
		return domain.ModifierGroup{}, fmt.Errorf("%w: modifier group %s", domain.ErrItemNotFound, groupID)
	}
	return g.Clone(), nil
}
