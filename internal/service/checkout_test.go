package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holaphone/order-service/internal/domain"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

type checkoutMocks struct {
	checkout *mockCheckoutRepository
	catalog  *mockCatalogRepository
	carts    *mockCartRepository
	vouchers *mockVoucherRepository
}

func newCheckoutService(t *testing.T) (*CheckoutService, *checkoutMocks) {
	t.Helper()
	m := &checkoutMocks{
		checkout: new(mockCheckoutRepository),
		catalog:  new(mockCatalogRepository),
		carts:    new(mockCartRepository),
		vouchers: new(mockVoucherRepository),
	}
	svc := NewCheckoutService(m.checkout, m.catalog, m.carts, m.vouchers, newTestProducer(), newTestLogger())
	return svc, m
}

func validShipping() domain.ShippingInfo {
	return domain.ShippingInfo{
		FullName: "Mai Anh",
		Phone:    "0901234567",
		Address:  "12 Tran Phu",
		Province: "Da Nang",
	}
}

func cartWith(userID string, variantIDs ...string) *domain.Cart {
	now := time.Now().UTC()
	cart := &domain.Cart{UserID: userID, UpdatedAt: now}
	for _, id := range variantIDs {
		cart.Lines = append(cart.Lines, domain.CartLine{VariantID: id, Quantity: 5, AddedAt: now})
	}
	return cart
}

func phoneVariant(stock int) *domain.Variant {
	return &domain.Variant{
		ID:         "var-001",
		ProductID:  "prod-001",
		Name:       "Phone 128GB Black",
		SKU:        "PH-128-BLK",
		CategoryID: "phones",
		Price:      100,
		Stock:      stock,
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)
	m.checkout.On("PlaceOrder", ctx, mock.AnythingOfType("*domain.Order"), "").Return(nil)
	m.carts.On("RemoveLines", ctx, "user-001", []string{"var-001"}).Return(nil)

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 3, ExpectedPrice: 100}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, int64(300), order.SubtotalAmount)
	assert.Equal(t, int64(300), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Phone 128GB Black", order.Items[0].Name)
	assert.Equal(t, int64(100), order.Items[0].Price)
	assert.Equal(t, 3, order.Items[0].Quantity)

	m.checkout.AssertExpectations(t)
	m.carts.AssertExpectations(t)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 6, ExpectedPrice: 100}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStateConflict)
	assert.ErrorContains(t, err, "insufficient stock")

	// No order persisted, no cart line touched.
	m.checkout.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
	m.carts.AssertNotCalled(t, "RemoveLines", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_PriceChanged(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 90}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStateConflict)
	assert.ErrorContains(t, err, "price changed")
	m.checkout.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_VariantNotInCart(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-002"), nil)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.ErrorContains(t, err, "not in the cart")
}

func TestPlaceOrder_CartMissing(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(nil, apperrors.NotFound("cart", "user-001"))

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	svc, _ := newCheckoutService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   PlaceOrderInput
		message string
	}{
		{
			name: "incomplete shipping info",
			input: PlaceOrderInput{
				UserID:        "user-001",
				ShippingInfo:  domain.ShippingInfo{FullName: "Mai Anh"},
				PaymentMethod: domain.PaymentMethodCOD,
				Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
			},
			message: "shipping info",
		},
		{
			name: "empty selection",
			input: PlaceOrderInput{
				UserID:        "user-001",
				ShippingInfo:  validShipping(),
				PaymentMethod: domain.PaymentMethodCOD,
			},
			message: "at least one item",
		},
		{
			name: "bad payment method",
			input: PlaceOrderInput{
				UserID:        "user-001",
				ShippingInfo:  validShipping(),
				PaymentMethod: "crypto",
				Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
			},
			message: "payment method",
		},
		{
			name: "zero quantity",
			input: PlaceOrderInput{
				UserID:        "user-001",
				ShippingInfo:  validShipping(),
				PaymentMethod: domain.PaymentMethodCOD,
				Selections:    []Selection{{VariantID: "var-001", Quantity: 0, ExpectedPrice: 100}},
			},
			message: "quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestPlaceOrder_WithVoucher(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	voucher := &domain.Voucher{
		ID:            "v-1",
		Code:          "FLAT50",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 50,
		UsageLimit:    10,
		UsedCount:     1,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
	}

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)
	m.vouchers.On("GetByCode", ctx, "FLAT50").Return(voucher, nil)
	m.checkout.On("PlaceOrder", ctx, mock.AnythingOfType("*domain.Order"), "FLAT50").Return(nil)
	m.carts.On("RemoveLines", ctx, "user-001", []string{"var-001"}).Return(nil)

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodOnline,
		VoucherCode:   "FLAT50",
		Selections:    []Selection{{VariantID: "var-001", Quantity: 3, ExpectedPrice: 100}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300), order.SubtotalAmount)
	assert.Equal(t, int64(50), order.DiscountAmount)
	assert.Equal(t, int64(250), order.TotalAmount)
	assert.Equal(t, "FLAT50", order.VoucherCode)
}

func TestPlaceOrder_VoucherErrorAborts(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := &domain.Voucher{
		ID:            "v-1",
		Code:          "OLD",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 50,
		UsageLimit:    10,
		StartDate:     now.Add(-48 * time.Hour),
		EndDate:       now.Add(-24 * time.Hour),
		IsActive:      true,
	}

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)
	m.vouchers.On("GetByCode", ctx, "OLD").Return(expired, nil)

	_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		VoucherCode:   "OLD",
		Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStateConflict)
	assert.ErrorContains(t, err, "expired")
	m.checkout.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_TotalFloorsAtZero(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	bigVoucher := &domain.Voucher{
		ID:            "v-2",
		Code:          "MEGA",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 1000,
		UsageLimit:    10,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		IsActive:      true,
	}

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)
	m.vouchers.On("GetByCode", ctx, "MEGA").Return(bigVoucher, nil)
	m.checkout.On("PlaceOrder", ctx, mock.AnythingOfType("*domain.Order"), "MEGA").Return(nil)
	m.carts.On("RemoveLines", ctx, "user-001", []string{"var-001"}).Return(nil)

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		VoucherCode:   "MEGA",
		Selections:    []Selection{{VariantID: "var-001", Quantity: 3, ExpectedPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), order.TotalAmount)
}

func TestPlaceOrder_CartPruneFailureIsBestEffort(t *testing.T) {
	svc, m := newCheckoutService(t)
	ctx := context.Background()

	m.carts.On("Get", ctx, "user-001").Return(cartWith("user-001", "var-001"), nil)
	m.catalog.On("GetVariants", ctx, []string{"var-001"}).
		Return(map[string]*domain.Variant{"var-001": phoneVariant(5)}, nil)
	m.checkout.On("PlaceOrder", ctx, mock.AnythingOfType("*domain.Order"), "").Return(nil)
	m.carts.On("RemoveLines", ctx, "user-001", []string{"var-001"}).
		Return(apperrors.Internal(assert.AnError))

	order, err := svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        "user-001",
		ShippingInfo:  validShipping(),
		PaymentMethod: domain.PaymentMethodCOD,
		Selections:    []Selection{{VariantID: "var-001", Quantity: 1, ExpectedPrice: 100}},
	})
	require.NoError(t, err)
	assert.NotNil(t, order)
}
