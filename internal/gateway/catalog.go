package gateway

import "strings"

// ID identifies a supported payment gateway. The set is closed: requests naming
// any other value fail validation before a network call is made.
type ID string

const (
	// Payme is a regional processor accepting UZS and USD.
	Payme ID = "payme"
	// Click is a regional processor accepting UZS and USD.
	Click ID = "click"
	// Uzum is a UZS-only mobile wallet.
	Uzum ID = "uzum"
	// Stripe is the international card processor.
	Stripe ID = "stripe"
)

// ParseID normalises a raw payment method string into a known gateway ID.
func ParseID(raw string) (ID, bool) {
	switch ID(strings.ToLower(strings.TrimSpace(raw))) {
	case Payme:
		return Payme, true
	case Click:
		return Click, true
	case Uzum:
		return Uzum, true
	case Stripe:
		return Stripe, true
	default:
		return "", false
	}
}

// Descriptor is an immutable capability record for one gateway.
type Descriptor struct {
	ID                  ID
	DisplayName         string
	SupportedCurrencies []string
	SupportsRefunds     bool
	TestMode            bool
}

// Supports reports whether the gateway accepts the provided currency code.
func (d Descriptor) Supports(currency string) bool {
	code := NormalizeCurrency(currency)
	for _, cur := range d.SupportedCurrencies {
		if cur == code {
			return true
		}
	}
	return false
}

// Catalog is a read-only registry of gateway descriptors. It is populated once
// at construction and safe for concurrent reads.
type Catalog struct {
	order   []ID
	entries map[ID]Descriptor
}

// NewCatalog builds the fixed gateway registry. The testMode flag is stamped on
// every descriptor so callers can surface sandbox affordances in the UI.
func NewCatalog(testMode bool) *Catalog {
	descriptors := []Descriptor{
		{ID: Payme, DisplayName: "Payme", SupportedCurrencies: []string{"UZS", "USD"}, SupportsRefunds: true, TestMode: testMode},
		{ID: Click, DisplayName: "Click", SupportedCurrencies: []string{"UZS", "USD"}, SupportsRefunds: true, TestMode: testMode},
		{ID: Uzum, DisplayName: "Uzum", SupportedCurrencies: []string{"UZS"}, SupportsRefunds: false, TestMode: testMode},
		{ID: Stripe, DisplayName: "Stripe", SupportedCurrencies: []string{"USD", "EUR", "GBP", "RUB"}, SupportsRefunds: true, TestMode: testMode},
	}
	c := &Catalog{
		order:   make([]ID, 0, len(descriptors)),
		entries: make(map[ID]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		c.order = append(c.order, d.ID)
		c.entries[d.ID] = d
	}
	return c
}

// Describe returns the descriptor for the provided gateway ID.
func (c *Catalog) Describe(id ID) (Descriptor, bool) {
	d, ok := c.entries[id]
	return d, ok
}

// List returns all descriptors in stable registration order.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
