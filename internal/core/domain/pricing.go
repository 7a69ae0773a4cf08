package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ScopeKind string

const (
	ScopeItem     ScopeKind = "item"
	ScopeCategory ScopeKind = "category"
	ScopeAll      ScopeKind = "all"
)

// Tier orders scopes by precedence: item rules apply before category rules,
// category rules before tenant-wide ones.
func (k ScopeKind) Tier() int {
	switch k {
	case ScopeItem:
		return 0
	case ScopeCategory:
		return 1
	default:
		return 2
	}
}

type RuleScope struct {
	Kind   ScopeKind `json:"kind"`
	Target string    `json:"target,omitempty"`
}

// Matches reports whether the scope selects item. A scope naming an item or
// category that does not exist simply never matches.
func (s RuleScope) Matches(item MenuItem) bool {
	switch s.Kind {
	case ScopeItem:
		return s.Target == item.ID
	case ScopeCategory:
		return s.Target == item.Category
	case ScopeAll:
		return true
	default:
		return false
	}
}

type RuleKind string

const (
	RulePercentageDiscount RuleKind = "percentage_discount"
	RuleFixedDiscount      RuleKind = "fixed_discount"
	RuleFixedOverride      RuleKind = "fixed_override"
	RuleBuyNGetM           RuleKind = "buy_n_get_m"
)

type PricingRule struct {
	ID       string          `json:"id"`
	Scope    RuleScope       `json:"scope"`
	Kind     RuleKind        `json:"kind"`
	Percent  decimal.Decimal `json:"percent"`
	Amount   decimal.Decimal `json:"amount"`
	BuyN     int             `json:"buy_n,omitempty"`
	GetM     int             `json:"get_m,omitempty"`
	Priority int             `json:"priority"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
	EndsAt   *time.Time      `json:"ends_at,omitempty"`
	Active   bool            `json:"active"`
}

// Validate rejects malformed rules at creation time so evaluation never fails.
func (r PricingRule) Validate() error {
	if err := ValidateEntityID("rule", r.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	switch r.Scope.Kind {
	case ScopeItem, ScopeCategory:
		if r.Scope.Target == "" {
			return fmt.Errorf("%w: rule %s: %s scope needs a target", ErrInvalidRule, r.ID, r.Scope.Kind)
		}
	case ScopeAll:
	default:
		return fmt.Errorf("%w: rule %s: unknown scope %q", ErrInvalidRule, r.ID, r.Scope.Kind)
	}

	switch r.Kind {
	case RulePercentageDiscount:
		if r.Percent.IsNegative() || r.Percent.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: rule %s: percentage %s outside [0,1]", ErrInvalidRule, r.ID, r.Percent)
		}
	case RuleFixedDiscount:
		if r.Amount.IsNegative() {
			return fmt.Errorf("%w: rule %s: negative fixed discount", ErrInvalidRule, r.ID)
		}
	case RuleFixedOverride:
		if r.Amount.IsNegative() {
			return fmt.Errorf("%w: rule %s: negative override price", ErrInvalidRule, r.ID)
		}
	case RuleBuyNGetM:
		if r.BuyN < 1 || r.GetM < 1 {
			return fmt.Errorf("%w: rule %s: buy_n and get_m must be positive", ErrInvalidRule, r.ID)
		}
	default:
		return fmt.Errorf("%w: rule %s: unknown kind %q", ErrInvalidRule, r.ID, r.Kind)
	}

	if r.StartsAt != nil && r.EndsAt != nil && !r.EndsAt.After(*r.StartsAt) {
		return fmt.Errorf("%w: rule %s: validity window ends before it starts", ErrInvalidRule, r.ID)
	}
	return nil
}

// InWindow reports whether at falls in [StartsAt, EndsAt).
func (r PricingRule) InWindow(at time.Time) bool {
	if r.StartsAt != nil && at.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && !at.Before(*r.EndsAt) {
		return false
	}
	return true
}

type PromotionNote struct {
	RuleID string `json:"rule_id"`
	BuyN   int    `json:"buy_n"`
	GetM   int    `json:"get_m"`
	Text   string `json:"text"`
}

const DiagnosticOverrideConflict = "override_conflict"

// Diagnostic flags a configuration problem found while pricing. It never
// changes the computed price.
type Diagnostic struct {
	Code    string   `json:"code"`
	RuleIDs []string `json:"rule_ids"`
	Message string   `json:"message"`
}
