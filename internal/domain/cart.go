package domain

import "time"

// CartLine is a single variant selection inside a customer's cart.
type CartLine struct {
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the customer's active cart, stored in Redis keyed by user id.
type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Line returns the cart line for variantID, or nil when absent.
func (c *Cart) Line(variantID string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			return &c.Lines[i]
		}
	}
	return nil
}
