// Package notifier consumes order events and sends customer notifications.
// Delivery is best effort: a failed notification is logged and dropped, it
// never blocks or fails the order flow that produced the event.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/holaphone/order-service/internal/client"
	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/event"
	pkgkafka "github.com/holaphone/order-service/pkg/kafka"
)

// ProfileResolver resolves a user id to a deliverable profile.
// *client.UserClient satisfies this.
type ProfileResolver interface {
	GetProfile(ctx context.Context, userID string) (*client.UserProfile, error)
}

// Notifier turns order events into customer emails.
type Notifier struct {
	users  ProfileResolver
	sender Sender
	logger *slog.Logger
}

// New creates a notifier.
func New(users ProfileResolver, sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		users:  users,
		sender: sender,
		logger: logger,
	}
}

// HandleOrderCreated sends the order confirmation email. It always returns
// nil: redelivering the event would not fix an unreachable mailbox, and a
// missed notification must not poison the consumer group.
func (n *Notifier) HandleOrderCreated(ctx context.Context, evt *pkgkafka.Event) error {
	var data event.OrderCreatedData
	if err := evt.UnmarshalData(&data); err != nil {
		n.logger.ErrorContext(ctx, "malformed order.created payload",
			slog.String("event_id", evt.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	profile, err := n.users.GetProfile(ctx, data.UserID)
	if err != nil {
		n.logDropped(ctx, evt, data.UserID, "resolve recipient", err)
		return nil
	}

	subject := fmt.Sprintf("Order %s confirmed", data.ID)
	body := renderOrderCreated(profile.Name, data)

	if err := n.sender.Send(ctx, profile.Email, subject, body); err != nil {
		n.logDropped(ctx, evt, data.UserID, "send confirmation", err)
		return nil
	}

	n.logger.InfoContext(ctx, "order confirmation sent",
		slog.String("order_id", data.ID),
		slog.String("user_id", data.UserID),
	)
	return nil
}

// HandleStatusChanged sends a status update email for transitions that matter
// to the customer.
func (n *Notifier) HandleStatusChanged(ctx context.Context, evt *pkgkafka.Event) error {
	var data event.OrderStatusChangedData
	if err := evt.UnmarshalData(&data); err != nil {
		n.logger.ErrorContext(ctx, "malformed order.status_changed payload",
			slog.String("event_id", evt.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	line, ok := statusLine(data)
	if !ok {
		return nil
	}

	profile, err := n.users.GetProfile(ctx, data.UserID)
	if err != nil {
		n.logDropped(ctx, evt, data.UserID, "resolve recipient", err)
		return nil
	}

	subject := fmt.Sprintf("Update on order %s", data.OrderID)
	body := renderStatusChanged(profile.Name, data.OrderID, line, data.Reason)

	if err := n.sender.Send(ctx, profile.Email, subject, body); err != nil {
		n.logDropped(ctx, evt, data.UserID, "send status update", err)
		return nil
	}

	n.logger.InfoContext(ctx, "status update sent",
		slog.String("order_id", data.OrderID),
		slog.String("new_status", data.NewStatus),
	)
	return nil
}

func (n *Notifier) logDropped(ctx context.Context, evt *pkgkafka.Event, userID, step string, err error) {
	n.logger.ErrorContext(ctx, "notification dropped",
		slog.String("event_id", evt.EventID),
		slog.String("event_type", evt.EventType),
		slog.String("user_id", userID),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// statusLine maps a status change to the sentence the customer sees. Internal
// bookkeeping transitions produce no email.
func statusLine(data event.OrderStatusChangedData) (string, bool) {
	switch data.NewStatus {
	case domain.OrderStatusProcessing:
		return "Your order is being prepared.", true
	case domain.OrderStatusShipped:
		return "Your order is on its way.", true
	case domain.OrderStatusDelivered:
		return "Your order has been delivered.", true
	case domain.OrderStatusDeliveryFailed:
		return "We could not deliver your order. Our shipper will try again.", true
	case domain.OrderStatusCancelled:
		return "Your order has been cancelled.", true
	case domain.OrderStatusReturnRequested:
		// The order status holds still while the return request advances;
		// the return status tells the stages apart.
		switch data.ReturnStatus {
		case domain.ReturnStatusApproved:
			return "Your return request has been approved. Please hand the items to our shipper.", true
		case "", domain.ReturnStatusPending:
			return "We received your return request and will review it shortly.", true
		}
		return "", false
	case domain.OrderStatusReturned:
		if data.ReturnStatus == domain.ReturnStatusRefunded {
			return "Your refund has been issued.", true
		}
		return "Your return has been completed. The refund is on its way.", true
	case domain.OrderStatusRejected:
		return "Your return request was declined.", true
	}
	return "", false
}

func renderOrderCreated(name string, data event.OrderCreatedData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", name)
	fmt.Fprintf(&b, "<p>Thank you for your order <strong>%s</strong>. We are getting it ready.</p>", data.ID)
	b.WriteString("<ul>")
	for _, item := range data.Items {
		fmt.Fprintf(&b, "<li>%s &times; %d &mdash; %s</li>", item.Name, item.Quantity, formatVND(item.Price*int64(item.Quantity)))
	}
	b.WriteString("</ul>")
	if data.DiscountAmount > 0 {
		fmt.Fprintf(&b, "<p>Discount (%s): &minus;%s</p>", data.VoucherCode, formatVND(data.DiscountAmount))
	}
	fmt.Fprintf(&b, "<p>Total: <strong>%s</strong><br>Payment: %s</p>", formatVND(data.TotalAmount), paymentLabel(data.PaymentMethod))
	fmt.Fprintf(&b, "<p>Shipping to: %s, %s</p>", data.ShippingInfo.FullName, data.ShippingInfo.Address)
	return b.String()
}

func renderStatusChanged(name, orderID, line, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", name)
	fmt.Fprintf(&b, "<p>%s (order <strong>%s</strong>)</p>", line, orderID)
	if reason != "" {
		fmt.Fprintf(&b, "<p>Note: %s</p>", reason)
	}
	return b.String()
}

func paymentLabel(method string) string {
	if method == domain.PaymentMethodCOD {
		return "cash on delivery"
	}
	return "paid online"
}

// formatVND renders an amount in dong with dot thousand separators.
func formatVND(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}

	out := b.String() + "₫"
	if neg {
		out = "-" + out
	}
	return out
}
