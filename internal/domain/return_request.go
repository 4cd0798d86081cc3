package domain

import "time"

// Return request statuses. The sub-flow moves strictly forward:
// pending → approved|rejected, approved → returned, returned → refunded.
const (
	ReturnStatusPending  = "pending"
	ReturnStatusApproved = "approved"
	ReturnStatusRejected = "rejected"
	ReturnStatusReturned = "returned"
	ReturnStatusRefunded = "refunded"
)

// returnTransitions is the return sub-flow transition table. No skipping.
var returnTransitions = map[string][]string{
	ReturnStatusPending:  {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved: {ReturnStatusReturned},
	ReturnStatusReturned: {ReturnStatusRefunded},
	ReturnStatusRejected: {},
	ReturnStatusRefunded: {},
}

// ReturnRequest is a customer-initiated sub-workflow within a delivered order
// seeking refund/return.
type ReturnRequest struct {
	Status      string     `json:"status"`
	Reason      string     `json:"reason"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
}

// NewReturnRequest opens a pending return request with the given reason.
func NewReturnRequest(reason string, now time.Time) *ReturnRequest {
	return &ReturnRequest{
		Status:      ReturnStatusPending,
		Reason:      reason,
		RequestedAt: now,
	}
}

// CanTransitionTo reports whether the return request may move to newStatus.
func (r *ReturnRequest) CanTransitionTo(newStatus string) bool {
	for _, s := range returnTransitions[r.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}
