package price

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/tax"
)

// CalculationMode selects the tax distribution algorithm.
type CalculationMode string

const (
	// ModeHorizontal sums the per-line, already-rounded tax amounts. Rounding
	// error accumulates per item.
	ModeHorizontal CalculationMode = "horizontal"
	// ModeVertical aggregates all amounts per tax rate first and rounds once
	// per rate.
	ModeVertical CalculationMode = "vertical"
)

// Valid reports whether the mode is recognised.
func (m CalculationMode) Valid() bool {
	return m == ModeHorizontal || m == ModeVertical
}

// AmountCalculator folds line item prices and shipping costs into one
// cart-level price. It is a pure function of its inputs.
type AmountCalculator struct {
	Tax tax.Calculator
}

// Calculate reduces the prices into a CartPrice under the given tax state and
// distribution mode.
func (c AmountCalculator) Calculate(prices, shipping []CalculatedPrice, state tax.State, mode CalculationMode) (CartPrice, error) {
	if !mode.Valid() {
		return CartPrice{}, fmt.Errorf("price: invalid calculation mode %q", mode)
	}
	switch state {
	case tax.StateFree:
		return c.calculateFree(prices, shipping), nil
	case tax.StateGross:
		return c.calculateTaxed(prices, shipping, tax.StateGross, mode)
	case tax.StateNet:
		return c.calculateTaxed(prices, shipping, tax.StateNet, mode)
	}
	return CartPrice{}, fmt.Errorf("price: invalid tax state %q", state)
}

func (c AmountCalculator) calculateFree(prices, shipping []CalculatedPrice) CartPrice {
	position := sumTotals(prices)
	total := tax.Round(position + sumTotals(shipping))
	return CartPrice{
		NetPrice:        total,
		TotalPrice:      total,
		PositionPrice:   position,
		RawTotal:        total,
		CalculatedTaxes: tax.CalculatedTaxCollection{},
		TaxRules:        tax.RuleCollection{},
		TaxState:        tax.StateFree,
	}
}

func (c AmountCalculator) calculateTaxed(prices, shipping []CalculatedPrice, state tax.State, mode CalculationMode) (CartPrice, error) {
	all := make([]CalculatedPrice, 0, len(prices)+len(shipping))
	all = append(all, prices...)
	all = append(all, shipping...)

	position := sumTotals(prices)
	supplied := tax.Round(position + sumTotals(shipping))

	var taxes tax.CalculatedTaxCollection
	var err error
	switch mode {
	case ModeHorizontal:
		taxes = mergeTaxes(all)
	case ModeVertical:
		taxes, err = c.verticalTaxes(all, state)
		if err != nil {
			return CartPrice{}, err
		}
	}

	rules := tax.RuleCollection{}
	for _, p := range all {
		rules = rules.Merge(p.TaxRules)
	}

	out := CartPrice{
		PositionPrice:   position,
		CalculatedTaxes: taxes,
		TaxRules:        rules,
		TaxState:        state,
	}
	switch state {
	case tax.StateGross:
		out.TotalPrice = supplied
		out.NetPrice = tax.Round(supplied - taxes.TotalTax())
	case tax.StateNet:
		out.NetPrice = supplied
		out.TotalPrice = tax.Round(supplied + taxes.TotalTax())
	}
	out.RawTotal = out.TotalPrice
	return out, nil
}

// verticalTaxes aggregates the taxed amount per rate across all prices, then
// calculates and rounds tax once per rate.
func (c AmountCalculator) verticalTaxes(all []CalculatedPrice, state tax.State) (tax.CalculatedTaxCollection, error) {
	type aggregate struct {
		rate  float64
		price float64
	}
	var order []float64
	sums := map[float64]*aggregate{}
	for _, p := range all {
		for _, entry := range p.CalculatedTaxes {
			agg, ok := sums[entry.Rate]
			if !ok {
				agg = &aggregate{rate: entry.Rate}
				sums[entry.Rate] = agg
				order = append(order, entry.Rate)
			}
			agg.price += entry.Price
		}
	}
	out := tax.CalculatedTaxCollection{}
	for _, rate := range order {
		agg := sums[rate]
		part, err := c.Tax.Calculate(agg.price, tax.NewRuleCollection(rate), state)
		if err != nil {
			return nil, err
		}
		out = out.Add(part...)
	}
	return out, nil
}

// mergeTaxes implements the horizontal mode: per-line rounded taxes are
// summed as-is.
func mergeTaxes(all []CalculatedPrice) tax.CalculatedTaxCollection {
	out := tax.CalculatedTaxCollection{}
	for _, p := range all {
		out = out.Add(p.CalculatedTaxes...)
	}
	return out
}

func sumTotals(prices []CalculatedPrice) float64 {
	var total float64
	for _, p := range prices {
		total += p.TotalPrice
	}
	return tax.Round(total)
}
