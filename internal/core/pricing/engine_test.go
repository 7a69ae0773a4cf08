package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

var evalTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(price string) domain.MenuItem {
	return domain.MenuItem{ID: "burger-001", Name: "Burger", Category: "burgers", BasePrice: money(price), Active: true}
}

func percent(id string, scope domain.RuleScope, pct string, priority int) domain.PricingRule {
	return domain.PricingRule{ID: id, Scope: scope, Kind: domain.RulePercentageDiscount, Percent: money(pct), Priority: priority, Active: true}
}

func fixed(id string, scope domain.RuleScope, amount string, priority int) domain.PricingRule {
	return domain.PricingRule{ID: id, Scope: scope, Kind: domain.RuleFixedDiscount, Amount: money(amount), Priority: priority, Active: true}
}

func override(id string, scope domain.RuleScope, amount string, priority int) domain.PricingRule {
	return domain.PricingRule{ID: id, Scope: scope, Kind: domain.RuleFixedOverride, Amount: money(amount), Priority: priority, Active: true}
}

var (
	itemScope = domain.RuleScope{Kind: domain.ScopeItem, Target: "burger-001"}
	catScope  = domain.RuleScope{Kind: domain.ScopeCategory, Target: "burgers"}
	allScope  = domain.RuleScope{Kind: domain.ScopeAll}
)

func TestEvaluate_BurgerScenario(t *testing.T) {
	rules := []domain.PricingRule{
		fixed("r-fixed", itemScope, "1.00", 2),
		percent("r-pct", itemScope, "0.10", 1),
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(money("6.20")) {
		t.Errorf("expected 6.20, got %s", res.Price.StringFixed(2))
	}
	if len(res.Applied) != 2 || res.Applied[0] != "r-pct" || res.Applied[1] != "r-fixed" {
		t.Errorf("unexpected application order: %v", res.Applied)
	}
}

func TestEvaluate_NoRulesKeepsBasePrice(t *testing.T) {
	for _, p := range []string{"0.00", "0.01", "8.00", "12.99", "999.95"} {
		res := NewEngine().Evaluate(item(p), nil, evalTime)
		if !res.Price.Equal(money(p)) {
			t.Errorf("base %s: expected unchanged price, got %s", p, res.Price)
		}
		if len(res.Diagnostics) != 0 || len(res.PromotionNotes) != 0 {
			t.Errorf("base %s: expected no notes or diagnostics", p)
		}
	}
}

func TestEvaluate_TierPrecedence(t *testing.T) {
	// Item override applies first, then category percentage, then the
	// tenant-wide fixed discount, regardless of priorities across tiers.
	rules := []domain.PricingRule{
		fixed("all-1", allScope, "0.50", 0),
		percent("cat-1", catScope, "0.10", 0),
		override("item-1", itemScope, "5.00", 9),
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(money("4.00")) {
		t.Errorf("expected 4.00, got %s", res.Price)
	}
}

func TestEvaluate_OverrideConflictHighestIDWins(t *testing.T) {
	a := override("promo-a", itemScope, "3.00", 1)
	b := override("promo-b", itemScope, "4.00", 1)
	c := override("promo-c", itemScope, "5.00", 1)

	orders := [][]domain.PricingRule{
		{a, b, c}, {c, b, a}, {b, a, c}, {c, a, b},
	}
	for i, rules := range orders {
		res := NewEngine().Evaluate(item("8.00"), rules, evalTime)
		if !res.Price.Equal(money("5.00")) {
			t.Errorf("order %d: expected promo-c to win with 5.00, got %s", i, res.Price)
		}
		if len(res.Diagnostics) != 1 {
			t.Fatalf("order %d: expected one diagnostic, got %d", i, len(res.Diagnostics))
		}
		d := res.Diagnostics[0]
		if d.Code != domain.DiagnosticOverrideConflict || len(d.RuleIDs) != 3 || d.RuleIDs[2] != "promo-c" {
			t.Errorf("order %d: unexpected diagnostic %+v", i, d)
		}
	}
}

func TestEvaluate_OverrideThenLaterRulesApply(t *testing.T) {
	rules := []domain.PricingRule{
		override("set", itemScope, "10.00", 1),
		percent("pct", itemScope, "0.25", 2),
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(money("7.50")) {
		t.Errorf("expected 7.50, got %s", res.Price)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("different priorities must not be flagged: %+v", res.Diagnostics)
	}
}

func TestEvaluate_FixedDiscountFloorsAtZero(t *testing.T) {
	rules := []domain.PricingRule{
		fixed("huge", itemScope, "20.00", 1),
		override("later", catScope, "3.00", 1),
		fixed("again", allScope, "5.00", 1),
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(decimal.Zero) {
		t.Errorf("expected 0, got %s", res.Price)
	}
	if res.Price.IsNegative() {
		t.Error("price went negative")
	}
}

func TestEvaluate_BankersRounding(t *testing.T) {
	tests := []struct {
		base, pct, want string
	}{
		{"0.25", "0.5", "0.12"},
		{"0.35", "0.5", "0.18"},
		{"12.99", "0.15", "11.04"},
	}
	for _, tt := range tests {
		res := NewEngine().Evaluate(item(tt.base), []domain.PricingRule{percent("p", itemScope, tt.pct, 1)}, evalTime)
		if !res.Price.Equal(money(tt.want)) {
			t.Errorf("%s less %s: expected %s, got %s", tt.base, tt.pct, tt.want, res.Price)
		}
	}
}

func TestEvaluate_NoRoundingMidTier(t *testing.T) {
	// 0.15 * 0.9^3 = 0.10935 -> 0.11. Rounding after each rule would give 0.12.
	rules := []domain.PricingRule{
		percent("p1", itemScope, "0.1", 1),
		percent("p2", itemScope, "0.1", 2),
		percent("p3", itemScope, "0.1", 3),
	}

	res := NewEngine().Evaluate(item("0.15"), rules, evalTime)

	if !res.Price.Equal(money("0.11")) {
		t.Errorf("expected 0.11, got %s", res.Price)
	}
}

func TestEvaluate_BuyNGetMIsANote(t *testing.T) {
	rules := []domain.PricingRule{
		{ID: "bogo", Scope: catScope, Kind: domain.RuleBuyNGetM, BuyN: 1, GetM: 1, Active: true},
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(money("8.00")) {
		t.Errorf("buy-n-get-m must not touch unit price, got %s", res.Price)
	}
	if len(res.PromotionNotes) != 1 || res.PromotionNotes[0].RuleID != "bogo" {
		t.Fatalf("expected one promotion note, got %+v", res.PromotionNotes)
	}
	if res.PromotionNotes[0].Text != "buy 1 get 1 free" {
		t.Errorf("unexpected note text %q", res.PromotionNotes[0].Text)
	}
	if len(res.Applied) != 0 {
		t.Errorf("notes are not price applications: %v", res.Applied)
	}
}

func TestEvaluate_InertAndInactiveRules(t *testing.T) {
	rules := []domain.PricingRule{
		percent("other-item", domain.RuleScope{Kind: domain.ScopeItem, Target: "deleted-item"}, "0.5", 1),
		percent("other-cat", domain.RuleScope{Kind: domain.ScopeCategory, Target: "tacos"}, "0.5", 1),
		{ID: "off", Scope: allScope, Kind: domain.RuleFixedOverride, Amount: money("1.00")},
	}

	res := NewEngine().Evaluate(item("8.00"), rules, evalTime)

	if !res.Price.Equal(money("8.00")) {
		t.Errorf("expected 8.00, got %s", res.Price)
	}
}

func TestEvaluate_ValidityWindow(t *testing.T) {
	start := evalTime.Add(time.Hour)
	end := evalTime.Add(3 * time.Hour)
	lunch := percent("lunch", itemScope, "0.5", 1)
	lunch.StartsAt = &start
	lunch.EndsAt = &end

	engine := NewEngine()

	before := engine.Evaluate(item("8.00"), []domain.PricingRule{lunch}, evalTime)
	if !before.Price.Equal(money("8.00")) {
		t.Errorf("rule not yet valid, got %s", before.Price)
	}
	if before.ValidUntil == nil || !before.ValidUntil.Equal(start) {
		t.Errorf("expected price valid until window start, got %v", before.ValidUntil)
	}

	during := engine.Evaluate(item("8.00"), []domain.PricingRule{lunch}, start)
	if !during.Price.Equal(money("4.00")) {
		t.Errorf("rule valid at start instant, got %s", during.Price)
	}
	if during.ValidUntil == nil || !during.ValidUntil.Equal(end) {
		t.Errorf("expected price valid until window end, got %v", during.ValidUntil)
	}

	after := engine.Evaluate(item("8.00"), []domain.PricingRule{lunch}, end)
	if !after.Price.Equal(money("8.00")) {
		t.Errorf("window end is exclusive, got %s", after.Price)
	}
	if after.ValidUntil != nil {
		t.Errorf("no boundary ahead, got %v", after.ValidUntil)
	}
}
