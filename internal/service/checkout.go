package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/event"
	"github.com/holaphone/order-service/internal/repository"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

// Selection is one cart line chosen for checkout. ExpectedPrice is the unit
// price the client displayed; it must still match the live variant price.
type Selection struct {
	VariantID     string
	Quantity      int
	ExpectedPrice int64
}

// PlaceOrderInput holds the parameters for creating an order from a cart.
type PlaceOrderInput struct {
	UserID        string
	ShippingInfo  domain.ShippingInfo
	PaymentMethod string
	VoucherCode   string
	Selections    []Selection
}

// CheckoutService creates orders from carts with atomic inventory
// reservation and voucher redemption.
type CheckoutService struct {
	checkout repository.CheckoutRepository
	catalog  repository.CatalogRepository
	carts    repository.CartRepository
	vouchers repository.VoucherRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	checkout repository.CheckoutRepository,
	catalog repository.CatalogRepository,
	carts repository.CartRepository,
	vouchers repository.VoucherRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkout: checkout,
		catalog:  catalog,
		carts:    carts,
		vouchers: vouchers,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder validates the selections against the customer's cart and the
// live catalog, evaluates the voucher, and persists the order. Stock
// decrements, item inserts, and voucher redemption commit atomically; cart
// pruning and the order.created event are best-effort afterwards.
func (s *CheckoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if !input.ShippingInfo.Complete() {
		return nil, apperrors.InvalidInput("shipping info requires full name, phone, and address")
	}
	if len(input.Selections) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	if input.PaymentMethod != domain.PaymentMethodCOD && input.PaymentMethod != domain.PaymentMethodOnline {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	for _, sel := range input.Selections {
		if sel.Quantity < 1 {
			return nil, apperrors.InvalidInput("quantity must be at least 1")
		}
	}

	cart, err := s.carts.Get(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}

	variantIDs := make([]string, len(input.Selections))
	for i, sel := range input.Selections {
		if cart.Line(sel.VariantID) == nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("variant %s is not in the cart", sel.VariantID))
		}
		variantIDs[i] = sel.VariantID
	}

	variants, err := s.catalog.GetVariants(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve variants: %w", err)
	}

	now := s.now()
	orderID := uuid.New().String()

	var subtotal int64
	items := make([]domain.OrderItem, len(input.Selections))
	categories := make([]string, 0, len(input.Selections))

	for i, sel := range input.Selections {
		variant, ok := variants[sel.VariantID]
		if !ok {
			return nil, apperrors.NotFound("variant", sel.VariantID)
		}
		if variant.Stock < sel.Quantity {
			return nil, apperrors.StateConflict(fmt.Sprintf("insufficient stock for variant %s", sel.VariantID))
		}
		if variant.Price != sel.ExpectedPrice {
			return nil, apperrors.StateConflict(fmt.Sprintf("price changed for variant %s", sel.VariantID))
		}

		items[i] = domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: variant.ProductID,
			VariantID: variant.ID,
			Name:      variant.Name,
			SKU:       variant.SKU,
			Price:     variant.Price,
			Quantity:  sel.Quantity,
		}
		subtotal += items[i].LineTotal()

		if variant.CategoryID != "" {
			categories = append(categories, variant.CategoryID)
		}
	}

	var discount int64
	if input.VoucherCode != "" {
		voucher, err := s.vouchers.GetByCode(ctx, input.VoucherCode)
		if err != nil {
			return nil, fmt.Errorf("resolve voucher: %w", err)
		}
		discount, err = voucher.Evaluate(subtotal, categories, now)
		if err != nil {
			return nil, err
		}
	}

	order := &domain.Order{
		ID:             orderID,
		UserID:         input.UserID,
		Status:         domain.OrderStatusPending,
		Items:          items,
		SubtotalAmount: subtotal,
		DiscountAmount: discount,
		TotalAmount:    domain.FinalTotal(subtotal, discount),
		VoucherCode:    input.VoucherCode,
		PaymentMethod:  input.PaymentMethod,
		PaymentStatus:  domain.PaymentStatusUnpaid,
		ShippingInfo:   input.ShippingInfo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.checkout.PlaceOrder(ctx, order, input.VoucherCode); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	// Consumed cart lines are pruned best-effort; a failure leaves stale
	// lines in the cart but never undoes the order.
	if err := s.carts.RemoveLines(ctx, input.UserID, variantIDs); err != nil {
		s.logger.WarnContext(ctx, "failed to prune cart after checkout",
			slog.String("order_id", order.ID),
			slog.String("user_id", input.UserID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.String("payment_method", order.PaymentMethod),
	)

	return order, nil
}
