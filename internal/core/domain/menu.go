package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision every served price is rounded to.
const CurrencyPlaces int32 = 2

type MenuItem struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category"`
	BasePrice        decimal.Decimal `json:"base_price"`
	ModifierGroupIDs []string        `json:"modifier_group_ids,omitempty"`
	Active           bool            `json:"active"`
	Revision         uint64          `json:"revision"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (m MenuItem) Validate() error {
	if err := ValidateEntityID("item", m.ID); err != nil {
		return err
	}
	if m.Name == "" {
		return fmt.Errorf("%w: item %s has no name", ErrValidation, m.ID)
	}
	if m.BasePrice.IsNegative() {
		return fmt.Errorf("%w: item %s has negative base price", ErrValidation, m.ID)
	}
	if !m.BasePrice.Equal(m.BasePrice.Round(CurrencyPlaces)) {
		return fmt.Errorf("%w: item %s base price has more than %d decimal places", ErrValidation, m.ID, CurrencyPlaces)
	}
	seen := make(map[string]struct{}, len(m.ModifierGroupIDs))
	for _, id := range m.ModifierGroupIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: item %s references modifier group %s twice", ErrValidation, m.ID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Clone copies the slice fields so stored items never alias caller memory.
func (m MenuItem) Clone() MenuItem {
	if m.ModifierGroupIDs != nil {
		m.ModifierGroupIDs = append([]string(nil), m.ModifierGroupIDs...)
	}
	return m
}

type Modifier struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// ModifierGroup is shared by reference between the items of one tenant.
// MaxSelect of zero means no upper bound.
type ModifierGroup struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	MinSelect int        `json:"min_select"`
	MaxSelect int        `json:"max_select"`
	Modifiers []Modifier `json:"modifiers"`
}

func (g ModifierGroup) Validate() error {
	if err := ValidateEntityID("modifier group", g.ID); err != nil {
		return err
	}
	if g.Name == "" {
		return fmt.Errorf("%w: modifier group %s has no name", ErrValidation, g.ID)
	}
	if g.MinSelect < 0 || g.MaxSelect < 0 {
		return fmt.Errorf("%w: modifier group %s has negative selection bounds", ErrValidation, g.ID)
	}
	if g.MaxSelect > 0 && g.MaxSelect < g.MinSelect {
		return fmt.Errorf("%w: modifier group %s max_select below min_select", ErrValidation, g.ID)
	}
	if g.MinSelect > len(g.Modifiers) {
		return fmt.Errorf("%w: modifier group %s requires more selections than it offers", ErrValidation, g.ID)
	}
	seen := make(map[string]struct{}, len(g.Modifiers))
	for _, mod := range g.Modifiers {
		if err := ValidateEntityID("modifier", mod.ID); err != nil {
			return err
		}
		if _, dup := seen[mod.ID]; dup {
			return fmt.Errorf("%w: modifier group %s repeats modifier %s", ErrValidation, g.ID, mod.ID)
		}
		seen[mod.ID] = struct{}{}
	}
	return nil
}

func (g ModifierGroup) Clone() ModifierGroup {
	if g.Modifiers != nil {
		g.Modifiers = append([]Modifier(nil), g.Modifiers...)
	}
	return g
}
