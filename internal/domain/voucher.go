package domain

import (
	"time"

	apperrors "github.com/holaphone/order-service/pkg/errors"
)

// Voucher discount types.
const (
	DiscountTypeFixed      = "fixed"
	DiscountTypePercentage = "percentage"
)

// Voucher is a discount code with eligibility rules and a usage cap.
// DiscountValue is an amount for fixed vouchers and a percentage (0-100) for
// percentage vouchers. MaxDiscount caps percentage discounts when positive.
type Voucher struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue int64     `json:"discount_value"`
	MaxDiscount   int64     `json:"max_discount,omitempty"`
	UsageLimit    int       `json:"usage_limit"`
	UsedCount     int       `json:"used_count"`
	MinOrderValue int64     `json:"min_order_value"`
	Categories    []string  `json:"categories,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Evaluate validates the voucher against an order subtotal and the cart's
// category ids, returning the discount amount. Checks run in a fixed order
// and the first failure wins; every failure carries the precise reason so the
// caller can surface it.
func (v *Voucher) Evaluate(subtotal int64, categoryIDs []string, now time.Time) (int64, error) {
	if !v.IsActive {
		return 0, apperrors.StateConflict("voucher " + v.Code + " is not active")
	}
	if now.Before(v.StartDate) {
		return 0, apperrors.StateConflict("voucher " + v.Code + " is not yet applicable")
	}
	if now.After(v.EndDate) {
		return 0, apperrors.StateConflict("voucher " + v.Code + " has expired")
	}
	if v.UsedCount >= v.UsageLimit {
		return 0, apperrors.StateConflict("voucher " + v.Code + " usage limit reached")
	}
	if subtotal < v.MinOrderValue {
		return 0, apperrors.StateConflict("order subtotal is below the voucher minimum order value")
	}
	if len(v.Categories) > 0 {
		if len(categoryIDs) == 0 {
			return 0, apperrors.StateConflict("voucher " + v.Code + " is restricted to specific categories")
		}
		restricted := make(map[string]bool, len(v.Categories))
		for _, c := range v.Categories {
			restricted[c] = true
		}
		match := false
		for _, c := range categoryIDs {
			if restricted[c] {
				match = true
				break
			}
		}
		if !match {
			return 0, apperrors.StateConflict("voucher " + v.Code + " does not apply to any item in the order")
		}
	}

	return v.Discount(subtotal), nil
}

// Discount computes the discount amount for subtotal without running
// eligibility checks.
func (v *Voucher) Discount(subtotal int64) int64 {
	switch v.DiscountType {
	case DiscountTypeFixed:
		return v.DiscountValue
	case DiscountTypePercentage:
		d := subtotal * v.DiscountValue / 100
		if v.MaxDiscount > 0 && d > v.MaxDiscount {
			d = v.MaxDiscount
		}
		return d
	}
	return 0
}

// FinalTotal applies discount to subtotal, flooring at zero.
func FinalTotal(subtotal, discount int64) int64 {
	total := subtotal - discount
	if total < 0 {
		return 0
	}
	return total
}
