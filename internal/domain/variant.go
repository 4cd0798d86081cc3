package domain

// Variant is a purchasable SKU of a product, referenced by order items but
// owned by the catalog. Stock is mutated here only through the conditional
// decrement in the checkout transaction.
type Variant struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	SKU        string `json:"sku,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Price      int64  `json:"price"`
	Stock      int    `json:"stock"`
}
