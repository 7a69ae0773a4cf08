package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

// Result is the effective price of one item at one instant.
type Result struct {
	Price          decimal.Decimal
	PromotionNotes []domain.PromotionNote
	Diagnostics    []domain.Diagnostic
	// Applied lists the ids of the rules folded into Price, in order.
	Applied []string
	// ValidUntil is the next instant a matching rule's window opens or
	// closes. Nil when no window boundary lies ahead.
	ValidUntil *time.Time
}

// Engine resolves effective prices. It holds no state: the same item, rules
// and instant always produce the same Result.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type candidate struct {
	rule domain.PricingRule
	tier int
}

// Evaluate folds the active rules matching item over its base price, in
// (tier, priority, id) order. Percentages accumulate unrounded within a tier
// and the running price is rounded with banker's rounding when a tier ends.
func (e *Engine) Evaluate(item domain.MenuItem, rules []domain.PricingRule, at time.Time) Result {
	var (
		res        Result
		candidates []candidate
	)

	for _, r := range rules {
		if !r.Active || !r.Scope.Matches(item) {
			continue
		}
		res.ValidUntil = earliestBoundary(res.ValidUntil, r, at)
		if !r.InWindow(at) {
			continue
		}
		candidates = append(candidates, candidate{rule: r, tier: r.Scope.Kind.Tier()})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority < b.rule.Priority
		}
		return a.rule.ID < b.rule.ID
	})

	price := item.BasePrice
	tier := -1
	for _, c := range candidates {
		if tier != -1 && c.tier != tier {
			price = roundCurrency(price)
		}
		tier = c.tier

		var applied bool
		price, applied = apply(price, c.rule, &res)
		if applied {
			res.Applied = append(res.Applied, c.rule.ID)
		}
	}

	res.Price = roundCurrency(price)
	res.Diagnostics = overrideConflicts(candidates)
	return res
}

func apply(price decimal.Decimal, r domain.PricingRule, res *Result) (decimal.Decimal, bool) {
	switch r.Kind {
	case domain.RulePercentageDiscount:
		return price.Mul(decimal.NewFromInt(1).Sub(r.Percent)), true
	case domain.RuleFixedDiscount:
		next := price.Sub(r.Amount)
		if next.IsNegative() {
			next = decimal.Zero
		}
		return next, true
	case domain.RuleFixedOverride:
		return r.Amount, true
	case domain.RuleBuyNGetM:
		res.PromotionNotes = append(res.PromotionNotes, domain.PromotionNote{
			RuleID: r.ID,
			BuyN:   r.BuyN,
			GetM:   r.GetM,
			Text:   fmt.Sprintf("buy %d get %d free", r.BuyN, r.GetM),
		})
		return price, false
	default:
		return price, false
	}
}

func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(domain.CurrencyPlaces)
}

func earliestBoundary(cur *time.Time, r domain.PricingRule, at time.Time) *time.Time {
	for _, b := range []*time.Time{r.StartsAt, r.EndsAt} {
		if b == nil || !b.After(at) {
			continue
		}
		if cur == nil || b.Before(*cur) {
			t := *b
			cur = &t
		}
	}
	return cur
}

// overrideConflicts reports fixed overrides sharing tier and priority. The
// fold already resolved them: the highest id is applied last and wins.
func overrideConflicts(sorted []candidate) []domain.Diagnostic {
	var diags []domain.Diagnostic
	for i := 0; i < len(sorted); {
		j := i
		var ids []string
		for ; j < len(sorted) && sorted[j].tier == sorted[i].tier && sorted[j].rule.Priority == sorted[i].rule.Priority; j++ {
			if sorted[j].rule.Kind == domain.RuleFixedOverride {
				ids = append(ids, sorted[j].rule.ID)
			}
		}
		if len(ids) > 1 {
			diags = append(diags, domain.Diagnostic{
				Code:    domain.DiagnosticOverrideConflict,
				RuleIDs: ids,
				Message: fmt.Sprintf("fixed overrides %s share priority %d; %s wins",
					strings.Join(ids, ", "), sorted[i].rule.Priority, ids[len(ids)-1]),
			})
		}
		i = j
	}
	return diags
}
