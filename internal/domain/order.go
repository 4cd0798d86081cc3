package domain

import (
	"time"
)

// Order statuses. An order starts in pending and moves through the
// fulfillment lifecycle according to the transition table below.
const (
	OrderStatusPending         = "pending"
	OrderStatusProcessing      = "processing"
	OrderStatusReadyToShip     = "ready_to_ship"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusDeliveryFailed  = "delivery_failed"
	OrderStatusReceived        = "received"
	OrderStatusReturnRequested = "return_requested"
	OrderStatusReturned        = "returned"
	OrderStatusRejected        = "rejected"
	OrderStatusCancelled       = "cancelled"
)

// Actor roles recognized by the order state machine.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleShipper  = "shipper"
)

// Payment methods.
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

// Payment statuses.
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusReadyToShip,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusDeliveryFailed,
		OrderStatusReceived,
		OrderStatusReturnRequested,
		OrderStatusReturned,
		OrderStatusRejected,
		OrderStatusCancelled,
	}
}

// IsValidStatus reports whether s is a recognized order status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// roleSet is a set of actor roles permitted to perform a transition.
type roleSet map[string]bool

func roles(rs ...string) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return set
}

// transitions is the single authoritative transition table: for each current
// status, the set of statuses it may move to and the roles allowed to perform
// each move. Every other rule (shipper lock set, admin-forbidden statuses,
// allowed-next projections) is derived from this table so the role views
// cannot drift apart.
var transitions = map[string]map[string]roleSet{
	OrderStatusPending: {
		OrderStatusProcessing: roles(RoleAdmin, RoleStaff),
		OrderStatusCancelled:  roles(RoleAdmin, RoleStaff, RoleCustomer),
	},
	OrderStatusProcessing: {
		OrderStatusReadyToShip: roles(RoleAdmin, RoleStaff),
		OrderStatusCancelled:   roles(RoleAdmin, RoleStaff, RoleCustomer),
	},
	OrderStatusReadyToShip: {
		OrderStatusShipped:   roles(RoleShipper),
		OrderStatusCancelled: roles(RoleAdmin, RoleStaff),
	},
	OrderStatusShipped: {
		OrderStatusDelivered:      roles(RoleShipper),
		OrderStatusDeliveryFailed: roles(RoleShipper),
	},
	OrderStatusDeliveryFailed: {
		OrderStatusShipped: roles(RoleShipper),
	},
	OrderStatusDelivered: {
		OrderStatusReceived:        roles(RoleCustomer),
		OrderStatusReturnRequested: roles(RoleCustomer),
	},
	OrderStatusReceived: {
		OrderStatusReturnRequested: roles(RoleCustomer),
	},
	OrderStatusReturnRequested: {
		OrderStatusReturned:  roles(RoleAdmin, RoleStaff),
		OrderStatusDelivered: roles(RoleAdmin, RoleStaff),
		OrderStatusRejected:  roles(RoleAdmin, RoleStaff),
	},
	// Terminal statuses have no outgoing transitions.
	OrderStatusReturned:  {},
	OrderStatusRejected:  {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether role may move an order from one status to
// another according to the transition table.
func CanTransition(from, to, role string) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	allowed, ok := next[to]
	if !ok {
		return false
	}
	if role == RoleAdmin || role == RoleStaff {
		return allowed[RoleAdmin] || allowed[RoleStaff]
	}
	return allowed[role]
}

// AllowedNext returns the statuses role may move an order to from the given
// status. The result is sorted by the canonical status order for stable output.
func AllowedNext(from, role string) []string {
	next, ok := transitions[from]
	if !ok {
		return nil
	}
	var out []string
	for _, s := range ValidStatuses() {
		if allowed, ok := next[s]; ok {
			if allowed[role] || ((role == RoleAdmin || role == RoleStaff) && (allowed[RoleAdmin] || allowed[RoleStaff])) {
				out = append(out, s)
			}
		}
	}
	return out
}

// IsTerminalStatus reports whether s is terminal (no outgoing transitions).
func IsTerminalStatus(s string) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// AdminLockedStatuses are current statuses an admin/staff actor may not modify
// directly; those orders move only through shipper actions or the return flow.
func AdminLockedStatuses() []string {
	return []string{OrderStatusShipped, OrderStatusDelivered, OrderStatusReceived}
}

// IsAdminLocked reports whether an order in status s is closed to direct
// admin/staff status updates.
func IsAdminLocked(s string) bool {
	for _, locked := range AdminLockedStatuses() {
		if locked == s {
			return true
		}
	}
	return false
}

// ShipperAllowedTargets returns the only statuses a shipper-originated update
// may set, derived from the transition table.
func ShipperAllowedTargets() []string {
	seen := map[string]bool{}
	for _, next := range transitions {
		for to, allowed := range next {
			if allowed[RoleShipper] {
				seen[to] = true
			}
		}
	}
	var out []string
	for _, s := range ValidStatuses() {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// IsShipperLocked reports whether an order in status s is closed to further
// shipper edits. Delivered is locked for shippers even though the customer can
// still confirm receipt or open a return from it.
func IsShipperLocked(s string) bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected, OrderStatusReturned:
		return true
	}
	return false
}

// ClearsShipper reports whether entering status s releases the assigned
// shipper from the order.
func ClearsShipper(s string) bool {
	switch s {
	case OrderStatusCancelled, OrderStatusReturned, OrderStatusRejected:
		return true
	}
	return false
}

// ReasonRequired reports whether moving from one status to another requires a
// non-empty reason. This covers delivery failures, customer cancellation, and
// both outcomes of an admin return decision.
func ReasonRequired(from, to string) bool {
	switch to {
	case OrderStatusDeliveryFailed:
		return true
	case OrderStatusCancelled:
		return true
	case OrderStatusRejected, OrderStatusDelivered:
		return from == OrderStatusReturnRequested
	}
	return false
}

// ShipperAssignable reports whether a shipper may be assigned to an order in
// status s. Assignment from pending auto-advances the order to ready_to_ship.
func ShipperAssignable(s string) bool {
	return s == OrderStatusPending || s == OrderStatusReadyToShip
}

// ShippingInfo is the delivery address snapshot captured at checkout. It is
// independent of any later change to the customer's profile.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	Province string `json:"province,omitempty"`
}

// Complete reports whether the mandatory shipping fields are present.
func (s ShippingInfo) Complete() bool {
	return s.FullName != "" && s.Phone != "" && s.Address != ""
}

// Order is the aggregate root for a customer purchase. Monetary amounts are
// in the smallest currency unit.
type Order struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	Status               string         `json:"status"`
	Items                []OrderItem    `json:"items"`
	SubtotalAmount       int64          `json:"subtotal_amount"`
	DiscountAmount       int64          `json:"discount_amount"`
	TotalAmount          int64          `json:"total_amount"`
	VoucherCode          string         `json:"voucher_code,omitempty"`
	PaymentMethod        string         `json:"payment_method"`
	PaymentStatus        string         `json:"payment_status"`
	ShippingInfo         ShippingInfo   `json:"shipping_info"`
	ShipperID            *string        `json:"shipper_id,omitempty"`
	ReturnRequest        *ReturnRequest `json:"return_request,omitempty"`
	CancelReason         string         `json:"cancel_reason,omitempty"`
	RejectReason         string         `json:"reject_reason,omitempty"`
	DeliveryFailedReason string         `json:"delivery_failed_reason,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// CanTransitionTo reports whether role may move this order to newStatus.
func (o *Order) CanTransitionTo(newStatus, role string) bool {
	return CanTransition(o.Status, newStatus, role)
}

// OwnedBy reports whether userID owns the order.
func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}

// AssignedTo reports whether shipperID is the order's assigned shipper.
func (o *Order) AssignedTo(shipperID string) bool {
	return o.ShipperID != nil && *o.ShipperID == shipperID
}

// CODAutoPaid reports whether reaching newStatus settles a cash-on-delivery
// order. Delivery or customer confirmation marks a COD order paid.
func (o *Order) CODAutoPaid(newStatus string) bool {
	if o.PaymentMethod != PaymentMethodCOD || o.PaymentStatus == PaymentStatusPaid {
		return false
	}
	return newStatus == OrderStatusDelivered || newStatus == OrderStatusReceived
}

// ShippingEditable reports whether the shipping snapshot may still be changed.
// Once the parcel is delivered or the order is dead there is nothing to ship.
func (o *Order) ShippingEditable() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusReceived, OrderStatusCancelled,
		OrderStatusReturned, OrderStatusRejected, OrderStatusReturnRequested:
		return false
	}
	return true
}
