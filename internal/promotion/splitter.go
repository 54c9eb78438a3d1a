package promotion

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
)

// LineItemQuantitySplitter carves a sub-quantity out of a line item so a
// package can bind to only part of its quantity. The returned item carries a
// freshly calculated price for the split quantity; the original is left
// untouched.
type LineItemQuantitySplitter struct {
	Quantity price.QuantityCalculator
}

// Split returns a copy of item holding quantity units. Quantities at or above
// the item's own quantity return a full copy.
func (s LineItemQuantitySplitter) Split(item *cart.LineItem, quantity int, ctx cart.Context) (*cart.LineItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("split %q: %w", item.ID, cart.ErrInvalidQuantity)
	}
	if quantity > item.Quantity {
		quantity = item.Quantity
	}
	out := item.Copy()
	out.Quantity = quantity
	if item.Price == nil {
		return out, nil
	}
	calculated, err := s.Quantity.Calculate(price.QuantityDefinition{
		Price:    item.Price.UnitPrice,
		Quantity: quantity,
		TaxRules: item.Price.TaxRules,
	}, ctx.TaxState)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", item.ID, err)
	}
	out.Price = &calculated
	if def, ok := item.PriceDefinition.(price.QuantityDefinition); ok {
		def.Quantity = quantity
		out.PriceDefinition = def
	}
	return out, nil
}
