package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Revisions is the set of source revisions a catalog view was computed from.
// It is compared as a single value, never field by field.
type Revisions struct {
	Menu      uint64 `json:"menu"`
	Stock     uint64 `json:"stock"`
	Pricing   uint64 `json:"pricing"`
	Modifiers uint64 `json:"modifiers"`
}

// ItemView is a consistent read of everything needed to price and serve one item.
type ItemView struct {
	TenantID       TenantID
	Item           MenuItem
	ModifierGroups []ModifierGroup
	Record         InventoryRecord
	Rules          []PricingRule
	Revisions      Revisions
}

// CatalogView is the merged menu + price + stock entry served to readers.
type CatalogView struct {
	TenantID       TenantID        `json:"tenant_id"`
	Item           MenuItem        `json:"item"`
	ModifierGroups []ModifierGroup `json:"modifier_groups,omitempty"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	PromotionNotes []PromotionNote `json:"promotion_notes,omitempty"`
	Diagnostics    []Diagnostic    `json:"diagnostics,omitempty"`
	Quantity       int64           `json:"quantity"`
	Status         StockStatus     `json:"status"`
	ComputedAt     time.Time       `json:"computed_at"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
	Revisions      Revisions       `json:"revisions"`
}
