package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/pkg/database"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

// CheckoutRepository persists new orders. All side effects of a checkout that
// must stay consistent with the order row — stock decrements, item inserts,
// voucher redemption — run inside one transaction.
type CheckoutRepository struct {
	pool database.DBTX
}

// NewCheckoutRepository creates a new PostgreSQL-backed checkout repository.
func NewCheckoutRepository(pool database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

// PlaceOrder inserts the order and its items, decrementing variant stock per
// line with a conditional update and redeeming the voucher (when voucherCode
// is non-empty) with a conditional usage-count increment. Any line failing
// its stock or price check aborts the whole transaction, so no partial
// decrement is ever visible.
func (r *CheckoutRepository) PlaceOrder(ctx context.Context, o *domain.Order, voucherCode string) error {
	ctx, end := database.TraceQuery(ctx, "PlaceOrder", "checkout transaction")

	err := r.placeOrder(ctx, o, voucherCode)
	end(err)
	return err
}

func (r *CheckoutRepository) placeOrder(ctx context.Context, o *domain.Order, voucherCode string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range o.Items {
		if err := reserveLine(ctx, tx, &o.Items[i]); err != nil {
			return err
		}
	}

	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, user_id, status, subtotal_amount, discount_amount, total_amount,
			voucher_code, payment_method, payment_status, shipping_info, cancel_reason,
			reject_reason, delivery_failed_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.SubtotalAmount,
		o.DiscountAmount,
		o.TotalAmount,
		o.VoucherCode,
		o.PaymentMethod,
		o.PaymentStatus,
		shippingJSON,
		o.CancelReason,
		o.RejectReason,
		o.DeliveryFailedReason,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, name, sku, price, quantity, line_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.Name,
			item.SKU,
			item.Price,
			item.Quantity,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if voucherCode != "" {
		if err := redeemVoucher(ctx, tx, voucherCode); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// reserveLine re-reads the variant inside the transaction, verifies the
// snapshot price still matches, and decrements stock with a conditional
// update so concurrent checkouts cannot oversell.
func reserveLine(ctx context.Context, tx pgx.Tx, item *domain.OrderItem) error {
	var (
		livePrice int64
		stock     int
	)
	err := tx.QueryRow(ctx,
		`SELECT price, stock FROM variants WHERE id = $1`,
		item.VariantID,
	).Scan(&livePrice, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("variant", item.VariantID)
		}
		return fmt.Errorf("fetch variant %s: %w", item.VariantID, err)
	}

	if livePrice != item.Price {
		return apperrors.StateConflict(fmt.Sprintf("price changed for variant %s", item.VariantID))
	}

	ct, err := tx.Exec(ctx,
		`UPDATE variants SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
		item.Quantity, item.VariantID,
	)
	if err != nil {
		return fmt.Errorf("decrement stock for variant %s: %w", item.VariantID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.StateConflict(fmt.Sprintf("insufficient stock for variant %s", item.VariantID))
	}

	return nil
}

// redeemVoucher increments the usage count only while it is still under the
// limit. Zero rows affected means a concurrent checkout took the last use.
func redeemVoucher(ctx context.Context, tx pgx.Tx, code string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE vouchers SET used_count = used_count + 1, updated_at = $1
		 WHERE code = $2 AND used_count < usage_limit`,
		time.Now().UTC(), code,
	)
	if err != nil {
		return fmt.Errorf("redeem voucher %s: %w", code, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.StateConflict("voucher " + code + " usage limit reached")
	}
	return nil
}
