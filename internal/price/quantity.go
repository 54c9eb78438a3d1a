package price

import "github.com/noah-isme/checkout-core/internal/tax"

// QuantityCalculator prices unit-price times quantity definitions. The tax
// calculation (and therefore rounding) happens per line, which is what the
// horizontal distribution mode later sums up.
type QuantityCalculator struct {
	Tax tax.Calculator
}

// Calculate resolves a quantity definition into a calculated price.
func (c QuantityCalculator) Calculate(def QuantityDefinition, state tax.State) (CalculatedPrice, error) {
	unit := tax.Round(def.Price)
	qty := def.Quantity
	if qty < 1 {
		qty = 1
	}
	total := tax.Round(unit * float64(qty))
	taxes, err := c.Tax.Calculate(total, def.TaxRules, state)
	if err != nil {
		return CalculatedPrice{}, err
	}
	return CalculatedPrice{
		UnitPrice:       unit,
		TotalPrice:      total,
		Quantity:        qty,
		CalculatedTaxes: taxes,
		TaxRules:        def.TaxRules,
	}, nil
}
