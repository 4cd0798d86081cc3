package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/repository"
	"github.com/holaphone/order-service/pkg/database"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

// orderColumns is the select list shared by GetByID and List.
const orderColumns = `o.id, o.user_id, o.status, o.subtotal_amount, o.discount_amount,
	o.total_amount, o.voucher_code, o.payment_method, o.payment_status,
	o.shipping_info, o.shipper_id, o.return_request, o.cancel_reason,
	o.reject_reason, o.delivery_failed_reason, o.created_at, o.updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID retrieves an order by its ID, eagerly loading its items in a single
// query via LEFT JOIN + JSONB_AGG to avoid a second round trip.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'variant_id', oi.variant_id,
						'name', oi.name,
						'sku', oi.sku,
						'price', oi.price,
						'quantity', oi.quantity,
						'subtotal', oi.price * oi.quantity
					) ORDER BY oi.line_no
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`, orderColumns)

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)

	var (
		o            domain.Order
		shippingJSON []byte
		returnJSON   []byte
		itemsJSON    []byte
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.SubtotalAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.VoucherCode,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&shippingJSON,
		&o.ShipperID,
		&returnJSON,
		&o.CancelReason,
		&o.RejectReason,
		&o.DeliveryFailedReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := unmarshalOrderJSON(&o, shippingJSON, returnJSON); err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.ShipperID != nil {
		conditions = append(conditions, fmt.Sprintf("o.shipper_id = $%d", argIndex))
		args = append(args, *filter.ShipperID)
		argIndex++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("o.status = ANY($%d)", argIndex))
		args = append(args, filter.Statuses)
		argIndex++
	} else if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() gives the total match count in the same query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders o
		%s
		ORDER BY o.%s
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, filter.Page.OrderBy(), argIndex, argIndex+1,
	)

	args = append(args, filter.Page.PerPage, filter.Page.Offset)

	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
			returnJSON   []byte
		)

		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.SubtotalAmount,
			&o.DiscountAmount,
			&o.TotalAmount,
			&o.VoucherCode,
			&o.PaymentMethod,
			&o.PaymentStatus,
			&shippingJSON,
			&o.ShipperID,
			&returnJSON,
			&o.CancelReason,
			&o.RejectReason,
			&o.DeliveryFailedReason,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}

		if err := unmarshalOrderJSON(&o, shippingJSON, returnJSON); err != nil {
			return nil, 0, err
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for the page in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, variant_id, name, sku, price, quantity, price * quantity AS subtotal
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY line_no`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(
				&item.ID,
				&item.OrderID,
				&item.ProductID,
				&item.VariantID,
				&item.Name,
				&item.SKU,
				&item.Price,
				&item.Quantity,
				&item.Subtotal,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// Update persists the mutable portion of the order aggregate.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, shipper_id = $3, return_request = $4,
			cancel_reason = $5, reject_reason = $6, delivery_failed_reason = $7,
			updated_at = $8
		WHERE id = $9`

	var returnJSON []byte
	if o.ReturnRequest != nil {
		var err error
		returnJSON, err = json.Marshal(o.ReturnRequest)
		if err != nil {
			return fmt.Errorf("marshal return request: %w", err)
		}
	}

	o.UpdatedAt = time.Now().UTC()

	ctx, end := database.TraceQuery(ctx, "UpdateOrder", query)
	ct, err := r.pool.Exec(ctx, query,
		o.Status,
		o.PaymentStatus,
		o.ShipperID,
		returnJSON,
		o.CancelReason,
		o.RejectReason,
		o.DeliveryFailedReason,
		o.UpdatedAt,
		o.ID,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}

	return nil
}

// UpdateShippingInfo replaces the shipping snapshot.
func (r *OrderRepository) UpdateShippingInfo(ctx context.Context, id string, info domain.ShippingInfo) error {
	shippingJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	query := `
		UPDATE orders
		SET shipping_info = $1, updated_at = $2
		WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateShippingInfo", query)
	ct, err := r.pool.Exec(ctx, query, shippingJSON, time.Now().UTC(), id)
	end(err)
	if err != nil {
		return fmt.Errorf("update shipping info: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// AssignShipper sets the shipper and the possibly auto-advanced status.
func (r *OrderRepository) AssignShipper(ctx context.Context, id, shipperID, status string) error {
	query := `
		UPDATE orders
		SET shipper_id = $1, status = $2, updated_at = $3
		WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "AssignShipper", query)
	ct, err := r.pool.Exec(ctx, query, shipperID, status, time.Now().UTC(), id)
	end(err)
	if err != nil {
		return fmt.Errorf("assign shipper: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// Delete removes an order. Items go with it via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM orders WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteOrder", query)
	ct, err := r.pool.Exec(ctx, query, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// unmarshalOrderJSON decodes the JSONB columns into the aggregate.
func unmarshalOrderJSON(o *domain.Order, shippingJSON, returnJSON []byte) error {
	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		if err := json.Unmarshal(shippingJSON, &o.ShippingInfo); err != nil {
			return fmt.Errorf("unmarshal shipping info: %w", err)
		}
	}
	if len(returnJSON) > 0 && string(returnJSON) != "null" {
		var rr domain.ReturnRequest
		if err := json.Unmarshal(returnJSON, &rr); err != nil {
			return fmt.Errorf("unmarshal return request: %w", err)
		}
		o.ReturnRequest = &rr
	}
	return nil
}
