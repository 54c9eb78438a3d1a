package promotion

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
)

// ErrInvalidScope is the one fatal condition of the promotion pipeline: a
// discount line item whose scope is not a recognised value aborts the whole
// calculation.
var ErrInvalidScope = errors.New("promotion: invalid discount scope")

// Calculator applies cart-scoped discounts. It owns the discount line items:
// every pass strips them from the cart and re-adds the survivors, so
// re-running on an unchanged cart is byte-identical.
type Calculator struct {
	Packager    DiscountPackager
	Filter      PackageFilter
	Picker      AdvancedPackagePicker
	GroupFilter SetGroupScopeFilter
	Absolute    price.AbsoluteCalculator
	Percentage  price.PercentageCalculator
}

// ApplyCartPromotions recalculates all cart-scope discounts against the cart.
// Recoverable conditions append to cart.Errors and processing continues; only
// an invalid scope aborts.
func (c *Calculator) ApplyCartPromotions(discounts cart.LineItems, target *cart.Cart, ctx cart.Context) error {
	stripDiscounts(target, cart.ScopeCart)

	ordered, err := orderByPriority(discounts)
	if err != nil {
		return err
	}

	applied := []*cart.DiscountMetadata{}
	consumed := map[string]struct{}{}

	for _, item := range ordered {
		meta := item.Discount
		if meta.Scope != cart.ScopeCart {
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

		packages, err := c.buildPackages(meta, target, ctx, consumed)
		if err != nil {
			return err
		}
		if len(packages) == 0 {
			target.Errors = target.Errors.Add(cart.Error{
				Code:      cart.ErrCodePromotionNoPackage,
				Message:   fmt.Sprintf("promotion %q matched no cart contents", meta.PromotionID),
				Reference: meta.PromotionID,
			})
			obs.CountPromotion("no-package")
			continue
		}

		calculated, err := c.discountPrice(meta, packages, ctx)
		if err != nil {
			return err
		}

		discount := item.Copy()
		discount.Price = &calculated
		discount.Composition = packages.Composition()
		target.LineItems = append(target.LineItems, discount)
		obs.CountPromotion("applied")

		applied = append(applied, meta)
		for _, pkg := range packages {
			for _, pkgItem := range pkg.Items {
				consumed[pkgItem.LineItemID] = struct{}{}
			}
		}
	}
	return nil
}

func (c *Calculator) buildPackages(meta *cart.DiscountMetadata, target *cart.Cart, ctx cart.Context, consumed map[string]struct{}) (PackageCollection, error) {
	packages, err := c.Packager.MatchingPackages(meta, target, ctx)
	if err != nil {
		return nil, err
	}
	packages = c.Filter.Filter(packages, consumed)
	packages = c.Picker.Pick(meta, packages)
	return c.GroupFilter.Filter(meta, packages, ctx)
}

// discountPrice computes the discount amount over the matched packages. An
// absolute value is clamped so the discount never exceeds what it matched.
func (c *Calculator) discountPrice(meta *cart.DiscountMetadata, packages PackageCollection, ctx cart.Context) (price.CalculatedPrice, error) {
	references := packages.Prices()
	switch meta.Type {
	case cart.DiscountAbsolute:
		amount := meta.Value
		if total := packages.Total(); amount > total {
			amount = total
		}
		return c.Absolute.Calculate(-amount, references, ctx.TaxState)
	case cart.DiscountPercentage:
		return c.Percentage.Calculate(-meta.Value, references, ctx.TaxState)
	}
	return price.CalculatedPrice{}, fmt.Errorf("promotion %q: invalid discount type %q", meta.PromotionID, meta.Type)
}

// stripDiscounts removes the scope's discount line items (and orphaned
// discounts without metadata) so a pass always starts from a clean state.
func stripDiscounts(target *cart.Cart, scope cart.DiscountScope) {
	kept := cart.LineItems{}
	for _, item := range target.LineItems {
		if item.Type == cart.LineItemTypeDiscount {
			if item.Discount == nil || item.Discount.Scope == scope {
				continue
			}
		}
		kept = append(kept, item)
	}
	target.LineItems = kept
}

// orderByPriority sorts discount items by descending priority. The sort is
// stable: promotions sharing a priority keep their input order, which is also
// the documented tie-break for mutual exclusion.
func orderByPriority(discounts cart.LineItems) (cart.LineItems, error) {
	ordered := cart.LineItems{}
	for _, item := range discounts {
		if item.Type != cart.LineItemTypeDiscount || item.Discount == nil {
			continue
		}
		if !item.Discount.Scope.Valid() {
			return nil, fmt.Errorf("%w: %q on promotion %q", ErrInvalidScope, item.Discount.Scope, item.Discount.PromotionID)
		}
		ordered = append(ordered, item)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Discount.Priority > ordered[j].Discount.Priority
	})
	return ordered, nil
}

// excludedBy reports whether the metadata conflicts with any already-applied
// promotion, in either direction.
func excludedBy(meta *cart.DiscountMetadata, applied []*cart.DiscountMetadata) bool {
	for _, other := range applied {
		if other.Excludes(meta.PromotionID) || meta.Excludes(other.PromotionID) {
			return true
		}
	}
	return false
}

// NewDiscountItem builds the discount line item representing an active
// promotion. The promotion calculators compute its price on every pass.
func NewDiscountItem(meta cart.DiscountMetadata) (*cart.LineItem, error) {
	if !meta.Scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, meta.Scope)
	}
	if !meta.Type.Valid() {
		return nil, fmt.Errorf("promotion %q: invalid discount type %q", meta.PromotionID, meta.Type)
	}
	label := meta.Label
	if label == "" {
		label = meta.PromotionID
	}
	return &cart.LineItem{
		ID:       uuid.NewString(),
		Type:     cart.LineItemTypeDiscount,
		Label:    label,
		Quantity: 1,
		Discount: &meta,
	}, nil
}
