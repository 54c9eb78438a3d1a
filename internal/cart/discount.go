package cart

// DiscountScope states what a promotion discounts: line items or shipping.
type DiscountScope string

const (
	ScopeCart     DiscountScope = "cart"
	ScopeDelivery DiscountScope = "delivery"
)

// Valid reports whether the scope is a recognised value.
func (s DiscountScope) Valid() bool {
	return s == ScopeCart || s == ScopeDelivery
}

// DiscountType states how the discount value is interpreted.
type DiscountType string

const (
	DiscountAbsolute   DiscountType = "absolute"
	DiscountPercentage DiscountType = "percentage"
)

// Valid reports whether the type is a recognised value.
func (t DiscountType) Valid() bool {
	return t == DiscountAbsolute || t == DiscountPercentage
}

// PackagerKind selects the packaging strategy used to group matched items.
type PackagerKind string

const (
	// PackagerCart builds a single package over every eligible item.
	PackagerCart PackagerKind = "cart"
	// PackagerSet builds fixed-size packages consumed greedily in cart order.
	PackagerSet PackagerKind = "set"
	// PackagerSetGroup builds packages from named sub-groups, each
	// contributing a configured count of units.
	PackagerSetGroup PackagerKind = "setgroup"
)

// PickerKind narrows which items inside a package the discount applies to.
type PickerKind string

const (
	PickerAll       PickerKind = "all"
	PickerCheapest  PickerKind = "cheapest"
	PickerCostliest PickerKind = "costliest"
)

// SetGroup configures one named sub-group of a set-group packager.
type SetGroup struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	Rule  Rule   `json:"-"`
}

// DiscountMetadata is the typed payload of a discount line item. Scope and
// type are closed enums so handling stays exhaustive at compile time instead
// of relying on runtime string checks.
type DiscountMetadata struct {
	PromotionID string        `json:"promotionId"`
	Label       string        `json:"label,omitempty"`
	Scope       DiscountScope `json:"scope"`
	Type        DiscountType  `json:"type"`
	Value       float64       `json:"value"`
	Priority    int           `json:"priority"`
	Exclusions  []string      `json:"exclusions,omitempty"`
	Packager    PackagerKind  `json:"packager,omitempty"`
	SetSize     int           `json:"setSize,omitempty"`
	Groups      []SetGroup    `json:"groups,omitempty"`
	Picker      PickerKind    `json:"picker,omitempty"`
	PickCount   int           `json:"pickCount,omitempty"`
	Rule        Rule          `json:"-"`
}

// Excludes reports whether the metadata lists the given promotion id.
func (m *DiscountMetadata) Excludes(promotionID string) bool {
	for _, id := range m.Exclusions {
		if id == promotionID {
			return true
		}
	}
	return false
}
