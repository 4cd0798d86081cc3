package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/event"
	"github.com/holaphone/order-service/internal/repository"
	pkgkafka "github.com/holaphone/order-service/pkg/kafka"
)

// --- Mock repositories ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) Update(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepository) UpdateShippingInfo(ctx context.Context, id string, info domain.ShippingInfo) error {
	args := m.Called(ctx, id, info)
	return args.Error(0)
}

func (m *mockOrderRepository) AssignShipper(ctx context.Context, id, shipperID, status string) error {
	args := m.Called(ctx, id, shipperID, status)
	return args.Error(0)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCheckoutRepository struct {
	mock.Mock
}

func (m *mockCheckoutRepository) PlaceOrder(ctx context.Context, o *domain.Order, voucherCode string) error {
	args := m.Called(ctx, o, voucherCode)
	return args.Error(0)
}

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockCatalogRepository) GetVariants(ctx context.Context, ids []string) (map[string]*domain.Variant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Variant), args.Error(1)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) RemoveLines(ctx context.Context, userID string, variantIDs []string) error {
	args := m.Called(ctx, userID, variantIDs)
	return args.Error(0)
}

type mockVoucherRepository struct {
	mock.Mock
}

func (m *mockVoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *mockVoucherRepository) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *mockVoucherRepository) List(ctx context.Context, filter repository.VoucherFilter) ([]domain.Voucher, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Voucher), args.Int(1), args.Error(2)
}

func (m *mockVoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockVoucherRepository) Update(ctx context.Context, v *domain.Voucher) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockVoucherRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProducer builds an event producer against an unreachable broker;
// publish failures are swallowed by the services under test.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:1"}), logger)
	return event.NewProducer(kafkaProducer, logger)
}

func strPtr(s string) *string {
	return &s
}
