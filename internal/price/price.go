package price

import "github.com/noah-isme/checkout-core/internal/tax"

// CalculatedPrice is the immutable result of pricing a line item or shipping
// cost. Calculators always build a fresh value; a price is never patched in
// place.
type CalculatedPrice struct {
	UnitPrice       float64                     `json:"unitPrice"`
	TotalPrice      float64                     `json:"totalPrice"`
	Quantity        int                         `json:"quantity"`
	CalculatedTaxes tax.CalculatedTaxCollection `json:"calculatedTaxes"`
	TaxRules        tax.RuleCollection          `json:"taxRules"`
}

// Invert mirrors the price around zero, used for discounts whose amounts are
// carried as negative prices.
func (p CalculatedPrice) Invert() CalculatedPrice {
	out := CalculatedPrice{
		UnitPrice:  -p.UnitPrice,
		TotalPrice: -p.TotalPrice,
		Quantity:   p.Quantity,
		TaxRules:   p.TaxRules,
	}
	out.CalculatedTaxes = make(tax.CalculatedTaxCollection, 0, len(p.CalculatedTaxes))
	for _, entry := range p.CalculatedTaxes {
		out.CalculatedTaxes = append(out.CalculatedTaxes, tax.CalculatedTax{
			Rate:  entry.Rate,
			Tax:   -entry.Tax,
			Price: -entry.Price,
		})
	}
	return out
}

// CartPrice is the cart-level total produced by the AmountCalculator. It is
// derived data: recomputed wholesale on every calculation pass.
type CartPrice struct {
	NetPrice        float64                     `json:"netPrice"`
	TotalPrice      float64                     `json:"totalPrice"`
	PositionPrice   float64                     `json:"positionPrice"`
	RawTotal        float64                     `json:"rawTotal"`
	CalculatedTaxes tax.CalculatedTaxCollection `json:"calculatedTaxes"`
	TaxRules        tax.RuleCollection          `json:"taxRules"`
	TaxState        tax.State                   `json:"taxState"`
}
