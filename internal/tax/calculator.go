package tax

import (
	"errors"

	"github.com/shopspring/decimal"
)

// State controls how supplied prices relate to tax.
type State string

const (
	// StateGross treats prices as tax-inclusive; tax is extracted.
	StateGross State = "gross"
	// StateNet treats prices as tax-exclusive; tax is added on top.
	StateNet State = "net"
	// StateFree skips tax calculation entirely.
	StateFree State = "free"
)

// Valid reports whether the state is one of the recognised values.
func (s State) Valid() bool {
	switch s {
	case StateGross, StateNet, StateFree:
		return true
	}
	return false
}

// ErrEmptyRules is returned when a taxed price carries no tax rules. This is
// a programming error upstream, not a recoverable cart condition.
var ErrEmptyRules = errors.New("tax: empty rule set for taxed price")

// Round rounds to the currency minor unit (2 decimals), half away from zero.
func Round(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}

// Calculator extracts or adds tax for a monetary amount under a rule set.
// Results are rounded here, which makes the calculator the per-item rounding
// point for the horizontal distribution mode.
type Calculator struct{}

// Calculate returns the calculated taxes for price under the given state.
func (Calculator) Calculate(price float64, rules RuleCollection, state State) (CalculatedTaxCollection, error) {
	if state == StateFree {
		return CalculatedTaxCollection{}, nil
	}
	if len(rules) == 0 {
		return nil, ErrEmptyRules
	}
	out := CalculatedTaxCollection{}
	for _, rule := range rules {
		share := Round(price * rule.Percentage / 100)
		var amount float64
		switch state {
		case StateGross:
			amount = share * rule.Rate / (100 + rule.Rate)
		case StateNet:
			amount = share * rule.Rate / 100
		}
		out = out.Add(CalculatedTax{Rate: rule.Rate, Tax: Round(amount), Price: share})
	}
	return out, nil
}
