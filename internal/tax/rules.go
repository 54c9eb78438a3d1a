package tax

// Rule describes a tax rate applied to a share of a monetary amount. The
// percentage is the portion of the amount the rate covers; a plain single-rate
// price uses 100.
type Rule struct {
	Rate       float64 `json:"rate"`
	Percentage float64 `json:"percentage"`
}

// NewRule builds a rule covering the full amount at the given rate.
func NewRule(rate float64) Rule {
	return Rule{Rate: rate, Percentage: 100}
}

// RuleCollection is an ordered set of tax rules, unique per rate.
type RuleCollection []Rule

// NewRuleCollection builds a collection from full-coverage rates.
func NewRuleCollection(rates ...float64) RuleCollection {
	out := make(RuleCollection, 0, len(rates))
	for _, rate := range rates {
		out = out.Add(NewRule(rate))
	}
	return out
}

// Add appends the rule, replacing an existing entry with the same rate.
func (c RuleCollection) Add(rule Rule) RuleCollection {
	for i, existing := range c {
		if existing.Rate == rule.Rate {
			c[i] = rule
			return c
		}
	}
	return append(c, rule)
}

// Get returns the rule for the rate if present.
func (c RuleCollection) Get(rate float64) (Rule, bool) {
	for _, rule := range c {
		if rule.Rate == rate {
			return rule, true
		}
	}
	return Rule{}, false
}

// Merge combines two collections, keeping first-seen order.
func (c RuleCollection) Merge(other RuleCollection) RuleCollection {
	out := append(RuleCollection{}, c...)
	for _, rule := range other {
		if _, ok := out.Get(rule.Rate); !ok {
			out = append(out, rule)
		}
	}
	return out
}

// CalculatedTax is the tax portion extracted from (or added to) a price at a
// single rate. Price carries the share of the total the rate applies to.
type CalculatedTax struct {
	Rate  float64 `json:"rate"`
	Tax   float64 `json:"tax"`
	Price float64 `json:"price"`
}

// CalculatedTaxCollection accumulates calculated taxes keyed by rate. Entry
// order is first-seen and stable so repeated calculations stay byte-identical.
type CalculatedTaxCollection []CalculatedTax

// Add merges the entries into the collection, summing tax and price for
// entries sharing a rate.
func (c CalculatedTaxCollection) Add(entries ...CalculatedTax) CalculatedTaxCollection {
	out := c
	for _, entry := range entries {
		merged := false
		for i, existing := range out {
			if existing.Rate == entry.Rate {
				out[i].Tax = Round(existing.Tax + entry.Tax)
				out[i].Price = Round(existing.Price + entry.Price)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, entry)
		}
	}
	return out
}

// TotalTax sums the tax amounts across all rates.
func (c CalculatedTaxCollection) TotalTax() float64 {
	var total float64
	for _, entry := range c {
		total += entry.Tax
	}
	return Round(total)
}

// TotalPrice sums the taxed amounts across all rates.
func (c CalculatedTaxCollection) TotalPrice() float64 {
	var total float64
	for _, entry := range c {
		total += entry.Price
	}
	return Round(total)
}
