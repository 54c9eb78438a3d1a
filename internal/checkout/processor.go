package checkout

import (
	"fmt"
	"time"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/hash"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/promotion"
)

// PriceResolver turns a price definition into a calculated price. Line item
// pricing that needs external data (catalog lookups, currency conversion)
// lives behind this port; discounts are priced by the promotion calculators
// and never pass through it.
type PriceResolver interface {
	Resolve(def price.Definition, ctx cart.Context) (price.CalculatedPrice, error)
}

// QuantityResolver prices quantity definitions locally. It is the default
// resolver for carts whose line items carry their own unit prices.
type QuantityResolver struct {
	Quantity price.QuantityCalculator
}

// Resolve prices the definition.
func (r QuantityResolver) Resolve(def price.Definition, ctx cart.Context) (price.CalculatedPrice, error) {
	quantity, ok := def.(price.QuantityDefinition)
	if !ok {
		return price.CalculatedPrice{}, fmt.Errorf("checkout: resolver cannot price %T", def)
	}
	return r.Quantity.Calculate(quantity, ctx.TaxState)
}

// Processor runs one full calculation pass: line item pricing, cart and
// delivery promotions, the cart-level amount, and the context hash. Derived
// state on the cart is replaced wholesale; no partial state survives a pass.
type Processor struct {
	Resolver           PriceResolver
	Promotions         *promotion.Calculator
	DeliveryPromotions *promotion.DeliveryCalculator
	Amount             price.AmountCalculator
	Hasher             hash.Hasher
}

// Calculate recomputes the cart's derived state in place.
func (p *Processor) Calculate(c *cart.Cart, ctx cart.Context) error {
	start := time.Now()
	defer obs.ObserveCalculation(start)

	for _, item := range c.LineItems {
		if item.Type == cart.LineItemTypeDiscount || item.PriceDefinition == nil {
			continue
		}
		calculated, err := p.Resolver.Resolve(item.PriceDefinition, ctx)
		if err != nil {
			return fmt.Errorf("price line item %q: %w", item.ID, err)
		}
		item.Price = &calculated
	}

	discounts := c.Discounts()
	c.Errors = cart.ErrorCollection{}
	if err := p.Promotions.ApplyCartPromotions(discounts, c, ctx); err != nil {
		return err
	}
	if err := p.DeliveryPromotions.ApplyDeliveryPromotions(discounts, c, ctx); err != nil {
		return err
	}

	cartPrice, err := p.Amount.Calculate(c.LineItems.Prices(), c.Deliveries.ShippingPrices(), ctx.TaxState, ctx.TaxCalculation)
	if err != nil {
		return err
	}
	c.Price = cartPrice

	digest, err := p.Hasher.Hash(c, ctx)
	if err != nil {
		return err
	}
	c.Hash = digest
	return nil
}

// NewProcessor wires a processor with the default local resolver and rule
// evaluator.
func NewProcessor(rules cart.RuleEvaluator) *Processor {
	return &Processor{
		Resolver: QuantityResolver{},
		Promotions: &promotion.Calculator{
			Packager:    promotion.DiscountPackager{Rules: rules},
			GroupFilter: promotion.SetGroupScopeFilter{Rules: rules},
		},
		DeliveryPromotions: &promotion.DeliveryCalculator{Rules: rules},
	}
}
