package promotion

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
)

// DeliveryCalculator applies delivery-scoped discounts against shipping
// costs. It shares the priority and exclusion discipline of the cart
// calculator, but additionally evaluates each discount's requirement
// predicate before applying it.
type DeliveryCalculator struct {
	Rules      cart.RuleEvaluator
	Absolute   price.AbsoluteCalculator
	Percentage price.PercentageCalculator
	Quantity   price.QuantityCalculator
}

// ApplyDeliveryPromotions recalculates all delivery-scope discounts.
func (c *DeliveryCalculator) ApplyDeliveryPromotions(discounts cart.LineItems, target *cart.Cart, ctx cart.Context) error {
	stripDiscounts(target, cart.ScopeDelivery)

	ordered, err := orderByPriority(discounts)
	if err != nil {
		return err
	}

	applied := []*cart.DiscountMetadata{}
	for _, item := range ordered {
		meta := item.Discount
		if meta.Scope != cart.ScopeDelivery {
			continue
		}
		if excludedBy(meta, applied) {
			target.Errors = target.Errors.Add(cart.Error{
				Code:      cart.ErrCodePromotionExcluded,
				Message:   fmt.Sprintf("promotion %q is excluded by a higher-priority promotion", meta.PromotionID),
				Reference: meta.PromotionID,
			})
			obs.CountPromotion("excluded")
			continue
		}
		if item.Requirement != nil && c.Rules != nil {
			ok, err := c.Rules.MatchesContext(item.Requirement, ctx)
			if err != nil {
				return err
			}
			if !ok {
				target.Errors = target.Errors.Add(cart.Error{
					Code:      cart.ErrCodePromotionNotEligible,
					Message:   fmt.Sprintf("promotion %q requirement not met", meta.PromotionID),
					Reference: meta.PromotionID,
				})
				obs.CountPromotion("not-eligible")
				continue
			}
		}

		shippingTotal := target.Deliveries.ShippingTotal()
		if shippingTotal <= 0 {
			target.Errors = target.Errors.Add(cart.Error{
				Code:      cart.ErrCodePromotionNoPackage,
				Message:   fmt.Sprintf("promotion %q has no shipping costs to discount", meta.PromotionID),
				Reference: meta.PromotionID,
			})
			obs.CountPromotion("no-package")
			continue
		}

		calculated, err := c.deliveryPrice(item, meta, target.Deliveries, ctx)
		if err != nil {
			return err
		}

		discount := item.Copy()
		discount.Price = &calculated
		target.LineItems = append(target.LineItems, discount)
		obs.CountPromotion("applied")
		applied = append(applied, meta)
	}
	return nil
}

// deliveryPrice computes the discount against the summed shipping costs.
// A quantity-based definition with a fixed quantity scales by that quantity
// alone, regardless of how many deliveries exist.
func (c *DeliveryCalculator) deliveryPrice(item *cart.LineItem, meta *cart.DiscountMetadata, deliveries cart.Deliveries, ctx cart.Context) (price.CalculatedPrice, error) {
	refs := deliveries.ShippingPrices()
	shippingTotal := deliveries.ShippingTotal()

	// A quantity definition carries the discount magnitude as a positive
	// price; the result is inverted after clamping to the shipping total.
	if def, ok := item.PriceDefinition.(price.QuantityDefinition); ok {
		calculated, err := c.Quantity.Calculate(def, ctx.TaxState)
		if err != nil {
			return price.CalculatedPrice{}, err
		}
		if calculated.TotalPrice > shippingTotal {
			return c.Absolute.Calculate(-shippingTotal, refs, ctx.TaxState)
		}
		return calculated.Invert(), nil
	}

	switch meta.Type {
	case cart.DiscountAbsolute:
		amount := meta.Value
		if amount > shippingTotal {
			amount = shippingTotal
		}
		return c.Absolute.Calculate(-amount, refs, ctx.TaxState)
	case cart.DiscountPercentage:
		return c.Percentage.Calculate(-meta.Value, refs, ctx.TaxState)
	}
	return price.CalculatedPrice{}, fmt.Errorf("promotion %q: invalid discount type %q", meta.PromotionID, meta.Type)
}
