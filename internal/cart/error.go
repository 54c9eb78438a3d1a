package cart

// Error codes for recoverable, cart-level conditions. They are data attached
// to the cart, not Go errors: calculation continues and the cart is still
// returned.
const (
	ErrCodePromotionExcluded    = "promotion-excluded"
	ErrCodePromotionNotEligible = "promotion-not-eligible"
	ErrCodePromotionNoPackage   = "promotion-no-package"
)

// Error is one structured, non-fatal computation error.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
	Blocking  bool   `json:"blocking,omitempty"`
}

// Key identifies an error for deduplication across recalculation passes.
func (e Error) Key() string {
	return e.Code + ":" + e.Reference
}

// ErrorCollection keeps errors in insertion order, unique by key.
type ErrorCollection []Error

// Add appends the error unless an entry with the same key already exists.
func (c ErrorCollection) Add(e Error) ErrorCollection {
	for _, existing := range c {
		if existing.Key() == e.Key() {
			return c
		}
	}
	return append(c, e)
}

// Has reports whether an error with the code and reference exists.
func (c ErrorCollection) Has(code, reference string) bool {
	for _, e := range c {
		if e.Code == code && e.Reference == reference {
			return true
		}
	}
	return false
}
