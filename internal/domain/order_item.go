package domain

// OrderItem is an immutable line within an order, snapshotting the variant,
// quantity, and unit price at purchase time.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal,omitempty"`
}

// LineTotal returns price multiplied by quantity.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}
