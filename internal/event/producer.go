package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holaphone/order-service/internal/domain"
	pkgkafka "github.com/holaphone/order-service/pkg/kafka"
)

// Kafka topics for order domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
)

// Aggregate type constant.
const AggregateTypeOrder = "order"

// Source identifier for events originating from this service.
const SourceOrderService = "order-service"

// OrderCreatedData is the payload for an order.created event (full order
// snapshot at checkout time).
type OrderCreatedData struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	Status         string              `json:"status"`
	Items          []OrderItemData     `json:"items"`
	SubtotalAmount int64               `json:"subtotal_amount"`
	DiscountAmount int64               `json:"discount_amount"`
	TotalAmount    int64               `json:"total_amount"`
	VoucherCode    string              `json:"voucher_code,omitempty"`
	PaymentMethod  string              `json:"payment_method"`
	ShippingInfo   domain.ShippingInfo `json:"shipping_info"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
// Reason carries whichever justification the transition required.
type OrderStatusChangedData struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	Reason        string `json:"reason,omitempty"`
	PaymentStatus string `json:"payment_status"`
	ReturnStatus  string `json:"return_status,omitempty"`
}

// Producer publishes order domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the order service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event with the full order
// snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			SKU:       item.SKU,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:             order.ID,
		UserID:         order.UserID,
		Status:         order.Status,
		Items:          items,
		SubtotalAmount: order.SubtotalAmount,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    order.TotalAmount,
		VoucherCode:    order.VoucherCode,
		PaymentMethod:  order.PaymentMethod,
		ShippingInfo:   order.ShippingInfo,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceOrderService, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus, reason string) error {
	data := OrderStatusChangedData{
		OrderID:       order.ID,
		UserID:        order.UserID,
		OldStatus:     oldStatus,
		NewStatus:     order.Status,
		Reason:        reason,
		PaymentStatus: order.PaymentStatus,
	}
	if order.ReturnRequest != nil {
		data.ReturnStatus = order.ReturnRequest.Status
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, order.ID, AggregateTypeOrder, SourceOrderService, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return nil
}
