package price

import "github.com/noah-isme/checkout-core/internal/tax"

// AbsoluteCalculator prices a fixed amount against a set of reference prices,
// distributing the amount across the references' tax rates proportionally so
// the discount reduces each rate's base by its fair share.
type AbsoluteCalculator struct {
	Tax tax.Calculator
}

// Calculate builds the calculated price for a fixed amount. The amount keeps
// its sign; discounts pass a negative value.
func (c AbsoluteCalculator) Calculate(amount float64, references []CalculatedPrice, state tax.State) (CalculatedPrice, error) {
	return distribute(c.Tax, tax.Round(amount), references, state)
}

// PercentageCalculator prices a percentage of the summed reference prices.
type PercentageCalculator struct {
	Tax tax.Calculator
}

// Calculate computes percentage of the references' total. A negative
// percentage yields a negative (discount) price.
func (c PercentageCalculator) Calculate(percentage float64, references []CalculatedPrice, state tax.State) (CalculatedPrice, error) {
	var total float64
	for _, ref := range references {
		total += ref.TotalPrice
	}
	amount := tax.Round(total * percentage / 100)
	return distribute(c.Tax, amount, references, state)
}

// distribute splits amount across the per-rate shares of the reference
// prices and calculates tax on each share.
func distribute(calc tax.Calculator, amount float64, references []CalculatedPrice, state tax.State) (CalculatedPrice, error) {
	shares := tax.CalculatedTaxCollection{}
	rules := tax.RuleCollection{}
	var refTotal float64
	for _, ref := range references {
		shares = shares.Add(ref.CalculatedTaxes...)
		rules = rules.Merge(ref.TaxRules)
		refTotal += ref.TotalPrice
	}
	refTotal = tax.Round(refTotal)

	if refTotal == 0 || len(shares) == 0 || state == tax.StateFree {
		return CalculatedPrice{
			UnitPrice:       amount,
			TotalPrice:      amount,
			Quantity:        1,
			CalculatedTaxes: tax.CalculatedTaxCollection{},
			TaxRules:        rules,
		}, nil
	}

	taxes := tax.CalculatedTaxCollection{}
	for _, share := range shares {
		portion := tax.Round(amount * share.Price / refTotal)
		rule, ok := rules.Get(share.Rate)
		if !ok {
			rule = tax.NewRule(share.Rate)
		}
		part, err := calc.Calculate(portion, tax.RuleCollection{{Rate: rule.Rate, Percentage: 100}}, state)
		if err != nil {
			return CalculatedPrice{}, err
		}
		taxes = taxes.Add(part...)
	}
	return CalculatedPrice{
		UnitPrice:       amount,
		TotalPrice:      amount,
		Quantity:        1,
		CalculatedTaxes: taxes,
		TaxRules:        rules,
	}, nil
}
