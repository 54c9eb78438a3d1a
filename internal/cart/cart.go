package cart

import (
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/tax"
)

// Context carries the pricing environment for a calculation pass. It is read
// by every calculator and never mutated by any of them.
type Context struct {
	TaxState       tax.State             `json:"taxState"`
	TaxCalculation price.CalculationMode `json:"taxCalculation"`
	Currency       string                `json:"currency"`
	RuleEnv        map[string]any        `json:"-"`
}

// RuleEvaluator is the port to the external rule engine. A nil rule matches
// everything; evaluation failures are propagated unchanged by callers.
type RuleEvaluator interface {
	MatchesItem(rule Rule, item *LineItem, ctx Context) (bool, error)
	MatchesContext(rule Rule, ctx Context) (bool, error)
}

// Delivery carries the shipping costs of one shipment.
type Delivery struct {
	ID            string                `json:"id"`
	ShippingCosts price.CalculatedPrice `json:"shippingCosts"`
}

// Deliveries is an ordered collection of deliveries.
type Deliveries []*Delivery

// ShippingPrices collects the shipping cost prices.
func (d Deliveries) ShippingPrices() []price.CalculatedPrice {
	out := make([]price.CalculatedPrice, 0, len(d))
	for _, delivery := range d {
		out = append(out, delivery.ShippingCosts)
	}
	return out
}

// ShippingTotal sums the shipping costs across all deliveries.
func (d Deliveries) ShippingTotal() float64 {
	var total float64
	for _, delivery := range d {
		total += delivery.ShippingCosts.TotalPrice
	}
	return tax.Round(total)
}

// Cart is the mutable purchase-in-progress. Price and Hash are derived data:
// a calculation pass replaces them wholesale, never patches them.
type Cart struct {
	Token      string          `json:"token"`
	LineItems  LineItems       `json:"lineItems"`
	Deliveries Deliveries      `json:"deliveries"`
	Price      price.CartPrice `json:"price"`
	Errors     ErrorCollection `json:"errors"`
	Hash       string          `json:"hash,omitempty"`
}

// New creates an empty cart for the token.
func New(token string) *Cart {
	return &Cart{
		Token:      token,
		LineItems:  LineItems{},
		Deliveries: Deliveries{},
		Errors:     ErrorCollection{},
	}
}

// Discounts returns the discount line items in cart order.
func (c *Cart) Discounts() LineItems {
	return c.LineItems.FilterType(LineItemTypeDiscount)
}

// HasBlockingErrors reports whether any error forbids order placement.
func (c *Cart) HasBlockingErrors() bool {
	for _, e := range c.Errors {
		if e.Blocking {
			return true
		}
	}
	return false
}
