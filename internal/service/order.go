package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/event"
	"github.com/holaphone/order-service/internal/repository"
	apperrors "github.com/holaphone/order-service/pkg/errors"
	"github.com/holaphone/order-service/pkg/pagination"
)

// OrderService implements the order lifecycle: role-gated status transitions,
// the return sub-flow, shipper assignment, and listings.
type OrderService struct {
	repo     repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder retrieves an order, enforcing visibility per role: customers see
// only their own orders, shippers only their assigned ones.
func (s *OrderService) GetOrder(ctx context.Context, id, actorID, role string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	switch role {
	case domain.RoleCustomer:
		if !order.OwnedBy(actorID) {
			return nil, apperrors.Forbidden("order belongs to another customer")
		}
	case domain.RoleShipper:
		if !order.AssignedTo(actorID) {
			return nil, apperrors.Forbidden("order is not assigned to this shipper")
		}
	}

	return order, nil
}

// ListMyOrders returns the customer's own orders, optionally filtered by
// status.
func (s *OrderService) ListMyOrders(ctx context.Context, userID string, status *string, page pagination.Params) ([]domain.Order, int, error) {
	if status != nil && !domain.IsValidStatus(*status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *status))
	}

	orders, total, err := s.repo.List(ctx, repository.OrderFilter{
		UserID: &userID,
		Status: status,
		Page:   page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list my orders: %w", err)
	}
	return orders, total, nil
}

// ListOrders returns all orders matching the filter (admin/staff listing).
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *filter.Status))
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ListShipperOrders returns the delivery work queue. With assignedOnly it is
// restricted to orders assigned to the shipper; otherwise it covers every
// order in a shipper-relevant status.
func (s *OrderService) ListShipperOrders(ctx context.Context, shipperID string, status *string, assignedOnly bool, page pagination.Params) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{Page: page}

	if assignedOnly {
		filter.ShipperID = &shipperID
	}

	if status != nil {
		if !isShipperVisibleStatus(*status) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid shipper status filter %q", *status))
		}
		filter.Status = status
	} else {
		filter.Statuses = []string{
			domain.OrderStatusReadyToShip,
			domain.OrderStatusShipped,
			domain.OrderStatusDelivered,
			domain.OrderStatusDeliveryFailed,
		}
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipper orders: %w", err)
	}
	return orders, total, nil
}

func isShipperVisibleStatus(s string) bool {
	switch s {
	case domain.OrderStatusReadyToShip, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusDeliveryFailed:
		return true
	}
	return false
}

// UpdateStatus is the admin/staff transition path. It validates the target
// against the transition table, enforces reason requirements, applies
// COD settlement and shipper clearing, and keeps the return sub-flow in sync
// for return decisions.
func (s *OrderService) UpdateStatus(ctx context.Context, id, newStatus, reason, role string) (*domain.Order, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			newStatus, strings.Join(domain.ValidStatuses(), ", ")))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if domain.IsAdminLocked(order.Status) {
		return nil, apperrors.Forbidden(fmt.Sprintf(
			"orders in %q can only change through shipper actions or the return flow", order.Status))
	}

	if err := checkTransition(order.Status, newStatus, role); err != nil {
		return nil, err
	}

	if domain.ReasonRequired(order.Status, newStatus) && reason == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"a reason is required to move an order from %q to %q", order.Status, newStatus))
	}

	oldStatus := order.Status
	s.applyTransition(order, newStatus, reason)

	// An admin decision on a return request resolves the sub-flow too.
	if oldStatus == domain.OrderStatusReturnRequested && order.ReturnRequest != nil {
		switch newStatus {
		case domain.OrderStatusReturned:
			order.ReturnRequest.Status = domain.ReturnStatusReturned
		case domain.OrderStatusRejected, domain.OrderStatusDelivered:
			// Sending the order back to delivered declines the request, so
			// the justification lands in the same field either way.
			order.ReturnRequest.Status = domain.ReturnStatusRejected
			order.RejectReason = reason
		}
	}

	if err := s.persistAndPublish(ctx, order, oldStatus, reason); err != nil {
		return nil, err
	}

	return order, nil
}

// ShipperUpdateStatus is the narrower shipper entry point: only the shipper
// assigned to the order may use it, only toward shipped, delivered, or
// delivery_failed, and never once the order is locked.
func (s *OrderService) ShipperUpdateStatus(ctx context.Context, id, newStatus, reason, shipperID string) (*domain.Order, error) {
	if !isShipperTarget(newStatus) {
		return nil, apperrors.Forbidden(fmt.Sprintf(
			"shippers may only set status to: %s", strings.Join(domain.ShipperAllowedTargets(), ", ")))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for shipper update: %w", err)
	}

	if !order.AssignedTo(shipperID) {
		return nil, apperrors.Forbidden("order is not assigned to this shipper")
	}
	if domain.IsShipperLocked(order.Status) {
		return nil, apperrors.StateConflict(fmt.Sprintf("order in %q is locked for shipper updates", order.Status))
	}

	if err := checkTransition(order.Status, newStatus, domain.RoleShipper); err != nil {
		return nil, err
	}

	if newStatus == domain.OrderStatusDeliveryFailed && reason == "" {
		return nil, apperrors.InvalidInput("a failure reason is required to mark delivery as failed")
	}

	oldStatus := order.Status
	s.applyTransition(order, newStatus, reason)

	if err := s.persistAndPublish(ctx, order, oldStatus, reason); err != nil {
		return nil, err
	}

	return order, nil
}

func isShipperTarget(s string) bool {
	for _, t := range domain.ShipperAllowedTargets() {
		if t == s {
			return true
		}
	}
	return false
}

// Cancel is the customer cancellation path: restricted to pending and
// processing, owner-only, reason mandatory.
func (s *OrderService) Cancel(ctx context.Context, id, reason, customerID string) (*domain.Order, error) {
	if reason == "" {
		return nil, apperrors.InvalidInput("a cancellation reason is required")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for cancel: %w", err)
	}

	if !order.OwnedBy(customerID) {
		return nil, apperrors.Forbidden("order belongs to another customer")
	}
	if err := checkTransition(order.Status, domain.OrderStatusCancelled, domain.RoleCustomer); err != nil {
		return nil, err
	}

	oldStatus := order.Status
	s.applyTransition(order, domain.OrderStatusCancelled, reason)

	if err := s.persistAndPublish(ctx, order, oldStatus, reason); err != nil {
		return nil, err
	}

	return order, nil
}

// ConfirmReceived lets the owning customer confirm a delivered order arrived.
func (s *OrderService) ConfirmReceived(ctx context.Context, id, customerID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for receipt confirmation: %w", err)
	}

	if !order.OwnedBy(customerID) {
		return nil, apperrors.Forbidden("order belongs to another customer")
	}
	if err := checkTransition(order.Status, domain.OrderStatusReceived, domain.RoleCustomer); err != nil {
		return nil, err
	}

	oldStatus := order.Status
	s.applyTransition(order, domain.OrderStatusReceived, "")

	if err := s.persistAndPublish(ctx, order, oldStatus, ""); err != nil {
		return nil, err
	}

	return order, nil
}

// RequestReturn opens the return sub-flow on a delivered order.
func (s *OrderService) RequestReturn(ctx context.Context, id, reason, customerID string) (*domain.Order, error) {
	if reason == "" {
		return nil, apperrors.InvalidInput("a return reason is required")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for return request: %w", err)
	}

	if !order.OwnedBy(customerID) {
		return nil, apperrors.Forbidden("order belongs to another customer")
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, apperrors.StateConflict(fmt.Sprintf(
			"returns can only be requested for delivered orders, current status is %q", order.Status))
	}
	if order.ReturnRequest != nil {
		return nil, apperrors.StateConflict("a return request already exists for this order")
	}

	oldStatus := order.Status
	order.ReturnRequest = domain.NewReturnRequest(reason, s.now())
	s.applyTransition(order, domain.OrderStatusReturnRequested, reason)

	if err := s.persistAndPublish(ctx, order, oldStatus, reason); err != nil {
		return nil, err
	}

	return order, nil
}

// ApproveReturn moves a pending return request to approved. The order stays
// in return_requested until the goods come back.
func (s *OrderService) ApproveReturn(ctx context.Context, id string) (*domain.Order, error) {
	order, rr, err := s.getReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.CanTransitionTo(domain.ReturnStatusApproved) {
		return nil, apperrors.StateConflict(fmt.Sprintf("return request is %q, not pending", rr.Status))
	}

	now := s.now()
	rr.Status = domain.ReturnStatusApproved
	rr.ApprovedAt = &now

	if err := s.persistAndPublish(ctx, order, order.Status, ""); err != nil {
		return nil, err
	}

	return order, nil
}

// RejectReturn rejects a pending return request; the order moves to the
// terminal rejected status.
func (s *OrderService) RejectReturn(ctx context.Context, id, reason string) (*domain.Order, error) {
	if reason == "" {
		return nil, apperrors.InvalidInput("a rejection reason is required")
	}

	order, rr, err := s.getReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.CanTransitionTo(domain.ReturnStatusRejected) {
		return nil, apperrors.StateConflict(fmt.Sprintf("return request is %q, not pending", rr.Status))
	}

	rr.Status = domain.ReturnStatusRejected

	oldStatus := order.Status
	s.applyTransition(order, domain.OrderStatusRejected, reason)

	if err := s.persistAndPublish(ctx, order, oldStatus, reason); err != nil {
		return nil, err
	}

	return order, nil
}

// MarkReturned records that the goods arrived back; the order reaches the
// terminal returned status.
func (s *OrderService) MarkReturned(ctx context.Context, id string) (*domain.Order, error) {
	order, rr, err := s.getReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.CanTransitionTo(domain.ReturnStatusReturned) {
		return nil, apperrors.StateConflict(fmt.Sprintf("return request is %q, not approved", rr.Status))
	}

	rr.Status = domain.ReturnStatusReturned

	oldStatus := order.Status
	s.applyTransition(order, domain.OrderStatusReturned, "")

	if err := s.persistAndPublish(ctx, order, oldStatus, ""); err != nil {
		return nil, err
	}

	return order, nil
}

// MarkRefunded closes the return sub-flow after the refund is paid out.
func (s *OrderService) MarkRefunded(ctx context.Context, id string) (*domain.Order, error) {
	order, rr, err := s.getReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rr.CanTransitionTo(domain.ReturnStatusRefunded) {
		return nil, apperrors.StateConflict(fmt.Sprintf("return request is %q, not returned", rr.Status))
	}

	now := s.now()
	rr.Status = domain.ReturnStatusRefunded
	rr.RefundedAt = &now

	if err := s.persistAndPublish(ctx, order, order.Status, ""); err != nil {
		return nil, err
	}

	return order, nil
}

// AssignShipper assigns a delivery agent. Assignment from pending
// auto-advances the order to ready_to_ship.
func (s *OrderService) AssignShipper(ctx context.Context, id, shipperID string) (*domain.Order, error) {
	if shipperID == "" {
		return nil, apperrors.InvalidInput("shipper_id is required")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for shipper assignment: %w", err)
	}

	if !domain.ShipperAssignable(order.Status) {
		return nil, apperrors.StateConflict(fmt.Sprintf(
			"a shipper can only be assigned while the order is pending or ready to ship, current status is %q", order.Status))
	}

	oldStatus := order.Status
	newStatus := order.Status
	if order.Status == domain.OrderStatusPending {
		newStatus = domain.OrderStatusReadyToShip
	}

	if err := s.repo.AssignShipper(ctx, id, shipperID, newStatus); err != nil {
		return nil, fmt.Errorf("assign shipper: %w", err)
	}

	order.ShipperID = &shipperID
	order.Status = newStatus

	if oldStatus != newStatus {
		s.publishStatusChanged(ctx, order, oldStatus, "")
	}

	s.logger.InfoContext(ctx, "shipper assigned",
		slog.String("order_id", id),
		slog.String("shipper_id", shipperID),
		slog.String("status", newStatus),
	)

	return order, nil
}

// UpdateShippingInfo replaces the shipping snapshot while the order can still
// be shipped. Customers may only edit their own orders.
func (s *OrderService) UpdateShippingInfo(ctx context.Context, id string, info domain.ShippingInfo, actorID, role string) (*domain.Order, error) {
	if !info.Complete() {
		return nil, apperrors.InvalidInput("shipping info requires full name, phone, and address")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for shipping update: %w", err)
	}

	if role == domain.RoleCustomer && !order.OwnedBy(actorID) {
		return nil, apperrors.Forbidden("order belongs to another customer")
	}
	if !order.ShippingEditable() {
		return nil, apperrors.StateConflict(fmt.Sprintf(
			"shipping info can no longer be changed in status %q", order.Status))
	}

	if err := s.repo.UpdateShippingInfo(ctx, id, info); err != nil {
		return nil, fmt.Errorf("update shipping info: %w", err)
	}

	order.ShippingInfo = info
	return order, nil
}

// Delete hard-deletes an order, cascading to its items.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.InfoContext(ctx, "order deleted", slog.String("order_id", id))
	return nil
}

// checkTransition distinguishes a transition nobody may make (state conflict)
// from one the actor's role may not make (forbidden).
func checkTransition(from, to, role string) error {
	if domain.CanTransition(from, to, role) {
		return nil
	}
	for _, r := range []string{domain.RoleCustomer, domain.RoleAdmin, domain.RoleStaff, domain.RoleShipper} {
		if domain.CanTransition(from, to, r) {
			return apperrors.Forbidden(fmt.Sprintf(
				"role %q may not move an order from %q to %q", role, from, to))
		}
	}
	return apperrors.StateConflict(fmt.Sprintf("cannot transition from %q to %q", from, to))
}

// applyTransition mutates the aggregate for the new status: reason fields,
// COD settlement, and shipper clearing.
func (s *OrderService) applyTransition(order *domain.Order, newStatus, reason string) {
	switch newStatus {
	case domain.OrderStatusCancelled:
		order.CancelReason = reason
	case domain.OrderStatusRejected:
		order.RejectReason = reason
	case domain.OrderStatusDeliveryFailed:
		order.DeliveryFailedReason = reason
	}

	if order.CODAutoPaid(newStatus) {
		order.PaymentStatus = domain.PaymentStatusPaid
	}
	if domain.ClearsShipper(newStatus) {
		order.ShipperID = nil
	}

	order.Status = newStatus
}

func (s *OrderService) persistAndPublish(ctx context.Context, order *domain.Order, oldStatus, reason string) error {
	if err := s.repo.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	s.publishStatusChanged(ctx, order, oldStatus, reason)

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", order.Status),
	)

	return nil
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *domain.Order, oldStatus, reason string) {
	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

// getReturn loads an order and its return request, failing when none exists.
func (s *OrderService) getReturn(ctx context.Context, id string) (*domain.Order, *domain.ReturnRequest, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get order for return decision: %w", err)
	}
	if order.ReturnRequest == nil {
		return nil, nil, apperrors.StateConflict("order has no return request")
	}
	return order, order.ReturnRequest, nil
}
