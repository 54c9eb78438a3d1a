package promotion

import (
	"sort"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// PackageFilter is the first narrowing stage: it drops packages referencing
// line items already consumed by a higher-priority discount. It never adds or
// reorders surviving packages.
type PackageFilter struct{}

// Filter removes packages containing any consumed line item.
func (PackageFilter) Filter(packages PackageCollection, consumed map[string]struct{}) PackageCollection {
	if len(consumed) == 0 {
		return packages
	}
	out := PackageCollection{}
	for _, pkg := range packages {
		blocked := false
		for _, item := range pkg.Items {
			if _, ok := consumed[item.LineItemID]; ok {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, pkg)
		}
	}
	return out
}

// AdvancedPackagePicker is the second stage: within each surviving package it
// keeps the N cheapest or costliest items per the discount configuration.
// Surviving items keep their original package order so composition metadata
// can trace provenance.
type AdvancedPackagePicker struct{}

// Pick applies the discount's picker heuristic to every package.
func (AdvancedPackagePicker) Pick(discount *cart.DiscountMetadata, packages PackageCollection) PackageCollection {
	if discount.Picker == cart.PickerAll || discount.Picker == "" || discount.PickCount < 1 {
		return packages
	}
	out := PackageCollection{}
	for _, pkg := range packages {
		if len(pkg.Items) <= discount.PickCount {
			out = append(out, pkg)
			continue
		}
		ranked := make([]PackageItem, len(pkg.Items))
		copy(ranked, pkg.Items)
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := unitPrice(ranked[i]), unitPrice(ranked[j])
			if discount.Picker == cart.PickerCostliest {
				return a > b
			}
			return a < b
		})
		keep := make(map[string]struct{}, discount.PickCount)
		for _, item := range ranked[:discount.PickCount] {
			keep[item.LineItemID] = struct{}{}
		}
		picked := Package{}
		for _, item := range pkg.Items {
			if _, ok := keep[item.LineItemID]; ok {
				picked.Items = append(picked.Items, item)
			}
		}
		out = append(out, picked)
	}
	return out
}

func unitPrice(item PackageItem) float64 {
	if item.Item == nil || item.Item.Price == nil {
		return 0
	}
	return item.Item.Price.UnitPrice
}

// SetGroupScopeFilter is the last stage: it re-validates set-group packages
// against the live context, dropping packages whose group members no longer
// satisfy their group's scope rule.
type SetGroupScopeFilter struct {
	Rules cart.RuleEvaluator
}

// Filter drops packages violating a group scope rule. Discounts without
// set-group packaging pass through untouched.
func (f SetGroupScopeFilter) Filter(discount *cart.DiscountMetadata, packages PackageCollection, ctx cart.Context) (PackageCollection, error) {
	if discount.Packager != cart.PackagerSetGroup || f.Rules == nil {
		return packages, nil
	}
	rules := make(map[string]cart.Rule, len(discount.Groups))
	for _, group := range discount.Groups {
		rules[group.ID] = group.Rule
	}
	out := PackageCollection{}
	for _, pkg := range packages {
		ok, err := f.packageInScope(pkg, rules, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}

func (f SetGroupScopeFilter) packageInScope(pkg Package, rules map[string]cart.Rule, ctx cart.Context) (bool, error) {
	for _, item := range pkg.Items {
		rule, ok := rules[item.GroupID]
		if !ok || rule == nil {
			continue
		}
		matches, err := f.Rules.MatchesItem(rule, item.Item, ctx)
		if err != nil {
			return false, err
		}
		if !matches {
			return false, nil
		}
	}
	return true, nil
}
