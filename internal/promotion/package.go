package promotion

import (
	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/tax"
)

// PackageItem is one (line item, matched quantity) pair inside a discount
// package. Item is the original line item split down to the matched quantity
// so its price reflects exactly the discounted share.
type PackageItem struct {
	LineItemID string
	Quantity   int
	GroupID    string
	Item       *cart.LineItem
}

// Package is an immutable, ordered group of line item quantities a discount
// applies against.
type Package struct {
	Items []PackageItem
}

// Total sums the package items' prices.
func (p Package) Total() float64 {
	var total float64
	for _, item := range p.Items {
		if item.Item != nil && item.Item.Price != nil {
			total += item.Item.Price.TotalPrice
		}
	}
	return tax.Round(total)
}

// Prices collects the package items' calculated prices.
func (p Package) Prices() []price.CalculatedPrice {
	out := make([]price.CalculatedPrice, 0, len(p.Items))
	for _, item := range p.Items {
		if item.Item != nil && item.Item.Price != nil {
			out = append(out, *item.Item.Price)
		}
	}
	return out
}

// PackageCollection is an ordered set of packages. Filter stages only ever
// remove packages (or items within them), never add or reorder survivors.
type PackageCollection []Package

// Total sums all packages.
func (c PackageCollection) Total() float64 {
	var total float64
	for _, p := range c {
		total += p.Total()
	}
	return tax.Round(total)
}

// Prices collects the prices of every package item in order.
func (c PackageCollection) Prices() []price.CalculatedPrice {
	out := []price.CalculatedPrice{}
	for _, p := range c {
		out = append(out, p.Prices()...)
	}
	return out
}

// Composition flattens the collection into composition metadata entries,
// merging quantities of the same line item.
func (c PackageCollection) Composition() []cart.CompositionEntry {
	out := []cart.CompositionEntry{}
	for _, p := range c {
		for _, item := range p.Items {
			var amount float64
			if item.Item != nil && item.Item.Price != nil {
				amount = item.Item.Price.TotalPrice
			}
			merged := false
			for i, entry := range out {
				if entry.LineItemID == item.LineItemID {
					out[i].Quantity += item.Quantity
					out[i].Amount = tax.Round(entry.Amount + amount)
					merged = true
					break
				}
			}
			if !merged {
				out = append(out, cart.CompositionEntry{
					LineItemID: item.LineItemID,
					Quantity:   item.Quantity,
					Amount:     amount,
				})
			}
		}
	}
	return out
}
