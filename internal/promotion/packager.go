package promotion

import (
	"fmt"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// DiscountPackager partitions a cart's goods into the packages a discount's
// eligibility rule matches. Three strategies exist: cart (one package over
// everything eligible), set (fixed-size packages consumed greedily in cart
// order) and set-group (packages assembled from named sub-groups).
type DiscountPackager struct {
	Rules    cart.RuleEvaluator
	Splitter LineItemQuantitySplitter
}

// MatchingPackages evaluates the discount's rule against the cart's goods and
// groups the matches according to the configured packaging strategy.
func (p DiscountPackager) MatchingPackages(discount *cart.DiscountMetadata, c *cart.Cart, ctx cart.Context) (PackageCollection, error) {
	eligible, err := p.eligibleItems(discount.Rule, c, ctx)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return PackageCollection{}, nil
	}
	switch discount.Packager {
	case cart.PackagerSet:
		return p.setPackages(discount, eligible, ctx)
	case cart.PackagerSetGroup:
		return p.setGroupPackages(discount, eligible, ctx)
	case cart.PackagerCart, "":
		return p.cartPackage(eligible, ctx)
	}
	return nil, fmt.Errorf("promotion: unknown packager %q", discount.Packager)
}

func (p DiscountPackager) eligibleItems(rule cart.Rule, c *cart.Cart, ctx cart.Context) (cart.LineItems, error) {
	out := cart.LineItems{}
	for _, item := range c.LineItems.FilterGoods() {
		if item.Price == nil {
			continue
		}
		if rule != nil && p.Rules != nil {
			ok, err := p.Rules.MatchesItem(rule, item, ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// cartPackage covers the full quantity of every eligible item in a single
// package.
func (p DiscountPackager) cartPackage(eligible cart.LineItems, ctx cart.Context) (PackageCollection, error) {
	pkg := Package{}
	for _, item := range eligible {
		split, err := p.Splitter.Split(item, item.Quantity, ctx)
		if err != nil {
			return nil, err
		}
		pkg.Items = append(pkg.Items, PackageItem{
			LineItemID: item.ID,
			Quantity:   item.Quantity,
			Item:       split,
		})
	}
	if len(pkg.Items) == 0 {
		return PackageCollection{}, nil
	}
	return PackageCollection{pkg}, nil
}

// setPackages consumes eligible units greedily in cart order, emitting one
// package per complete set of the configured size. Items with no remaining
// quantity are skipped without error.
func (p DiscountPackager) setPackages(discount *cart.DiscountMetadata, eligible cart.LineItems, ctx cart.Context) (PackageCollection, error) {
	size := discount.SetSize
	if size < 1 {
		return nil, fmt.Errorf("promotion %q: set size must be at least 1", discount.PromotionID)
	}
	remaining := remainingQuantities(eligible)
	out := PackageCollection{}
	for {
		pkg, ok, err := p.takeUnits(eligible, remaining, size, "", nil, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, pkg)
	}
	return out, nil
}

// setGroupPackages builds packages where each named group contributes its
// configured unit count, repeated until any group runs dry.
func (p DiscountPackager) setGroupPackages(discount *cart.DiscountMetadata, eligible cart.LineItems, ctx cart.Context) (PackageCollection, error) {
	if len(discount.Groups) == 0 {
		return nil, fmt.Errorf("promotion %q: set-group packager needs groups", discount.PromotionID)
	}
	remaining := remainingQuantities(eligible)
	out := PackageCollection{}
	for {
		combined := Package{}
		complete := true
		for _, group := range discount.Groups {
			if group.Count < 1 {
				return nil, fmt.Errorf("promotion %q: group %q count must be at least 1", discount.PromotionID, group.ID)
			}
			pkg, ok, err := p.takeUnits(eligible, remaining, group.Count, group.ID, group.Rule, ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				complete = false
				break
			}
			combined.Items = append(combined.Items, pkg.Items...)
		}
		if !complete {
			break
		}
		out = append(out, combined)
	}
	return out, nil
}

// takeUnits consumes count units from the eligible items in cart order,
// splitting line items when only part of their quantity is needed. It reports
// false without error when not enough units remain.
func (p DiscountPackager) takeUnits(eligible cart.LineItems, remaining map[string]int, count int, groupID string, rule cart.Rule, ctx cart.Context) (Package, bool, error) {
	var available int
	for _, item := range eligible {
		ok, err := p.matchesGroup(rule, item, ctx)
		if err != nil {
			return Package{}, false, err
		}
		if ok {
			available += remaining[item.ID]
		}
	}
	if available < count {
		return Package{}, false, nil
	}

	pkg := Package{}
	needed := count
	for _, item := range eligible {
		if needed == 0 {
			break
		}
		left := remaining[item.ID]
		if left == 0 {
			continue
		}
		ok, err := p.matchesGroup(rule, item, ctx)
		if err != nil {
			return Package{}, false, err
		}
		if !ok {
			continue
		}
		take := left
		if take > needed {
			take = needed
		}
		split, err := p.Splitter.Split(item, take, ctx)
		if err != nil {
			return Package{}, false, err
		}
		pkg.Items = append(pkg.Items, PackageItem{
			LineItemID: item.ID,
			Quantity:   take,
			GroupID:    groupID,
			Item:       split,
		})
		remaining[item.ID] = left - take
		needed -= take
	}
	return pkg, true, nil
}

func (p DiscountPackager) matchesGroup(rule cart.Rule, item *cart.LineItem, ctx cart.Context) (bool, error) {
	if rule == nil || p.Rules == nil {
		return true, nil
	}
	return p.Rules.MatchesItem(rule, item, ctx)
}

func remainingQuantities(items cart.LineItems) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.ID] = item.Quantity
	}
	return out
}
