package domain

import "time"

// TenantSnapshot is the unit exchanged with the persistence collaborator.
type TenantSnapshot struct {
	TenantID       TenantID          `json:"tenant_id"`
	Generation     uint64            `json:"generation"`
	MenuItems      []MenuItem        `json:"menu_items"`
	ModifierGroups []ModifierGroup   `json:"modifier_groups"`
	Inventory      []InventoryRecord `json:"inventory"`
	PricingRules   []PricingRule     `json:"pricing_rules"`
	TakenAt        time.Time         `json:"taken_at"`
}
