package repository

import (
	"context"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/pkg/pagination"
)

// OrderFilter narrows order listing queries. Nil pointer fields are ignored;
// Statuses (when non-empty) takes precedence over Status for work-queue style
// listings.
type OrderFilter struct {
	UserID    *string
	ShipperID *string
	Status    *string
	Statuses  []string
	Page      pagination.Params
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// GetByID retrieves an order with its items. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter plus the total match count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// Update persists the mutable portion of the aggregate: status, payment
	// status, shipper assignment, reasons, and the return request sub-object.
	Update(ctx context.Context, o *domain.Order) error

	// UpdateShippingInfo replaces the shipping snapshot.
	UpdateShippingInfo(ctx context.Context, id string, info domain.ShippingInfo) error

	// AssignShipper sets the shipper and the (possibly auto-advanced) status.
	AssignShipper(ctx context.Context, id, shipperID, status string) error

	// Delete removes an order, cascading to its items.
	Delete(ctx context.Context, id string) error
}

// CheckoutRepository persists a new order atomically: per-line price check
// and conditional stock decrement, order and item inserts, and voucher
// redemption all commit or roll back as one transaction.
type CheckoutRepository interface {
	PlaceOrder(ctx context.Context, o *domain.Order, voucherCode string) error
}

// VoucherFilter narrows voucher listing queries.
type VoucherFilter struct {
	Active *bool
	Page   pagination.Params
}

// VoucherRepository defines persistence operations for vouchers. Usage-count
// redemption is not here: it happens atomically inside the checkout
// transaction.
type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	GetByID(ctx context.Context, id string) (*domain.Voucher, error)
	List(ctx context.Context, filter VoucherFilter) ([]domain.Voucher, int, error)
	Create(ctx context.Context, v *domain.Voucher) error
	Update(ctx context.Context, v *domain.Voucher) error
	Delete(ctx context.Context, id string) error
}

// CatalogRepository reads the variant catalog. Stock mutation is excluded on
// purpose: the only write path is the conditional decrement inside the
// checkout transaction.
type CatalogRepository interface {
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	GetVariants(ctx context.Context, ids []string) (map[string]*domain.Variant, error)
}

// CartRepository accesses the customer's active cart.
type CartRepository interface {
	// Get returns the user's cart. Returns ErrNotFound when no cart exists.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// RemoveLines deletes the given variant lines from the user's cart.
	RemoveLines(ctx context.Context, userID string, variantIDs []string) error
}
