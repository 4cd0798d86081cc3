package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/repository"
	"github.com/holaphone/order-service/pkg/database"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

const voucherColumns = `id, code, discount_type, discount_value, max_discount, usage_limit,
	used_count, min_order_value, categories, start_date, end_date, is_active,
	created_at, updated_at`

// VoucherRepository implements repository.VoucherRepository using PostgreSQL.
type VoucherRepository struct {
	pool database.DBTX
}

// NewVoucherRepository creates a new PostgreSQL-backed voucher repository.
func NewVoucherRepository(pool database.DBTX) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// GetByCode retrieves a voucher by its unique code.
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := fmt.Sprintf(`SELECT %s FROM vouchers WHERE code = $1`, voucherColumns)
	return r.getOne(ctx, "GetVoucherByCode", query, code, code)
}

// GetByID retrieves a voucher by its ID.
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	query := fmt.Sprintf(`SELECT %s FROM vouchers WHERE id = $1`, voucherColumns)
	return r.getOne(ctx, "GetVoucherByID", query, id, id)
}

func (r *VoucherRepository) getOne(ctx context.Context, op, query, arg, ident string) (*domain.Voucher, error) {
	ctx, end := database.TraceQuery(ctx, op, query)

	var v domain.Voucher
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&v.ID,
		&v.Code,
		&v.DiscountType,
		&v.DiscountValue,
		&v.MaxDiscount,
		&v.UsageLimit,
		&v.UsedCount,
		&v.MinOrderValue,
		&v.Categories,
		&v.StartDate,
		&v.EndDate,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("voucher", ident)
		}
		return nil, fmt.Errorf("scan voucher: %w", err)
	}

	return &v, nil
}

// List returns vouchers matching the filter with the total count.
func (r *VoucherRepository) List(ctx context.Context, filter repository.VoucherFilter) ([]domain.Voucher, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.Active)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM vouchers
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		voucherColumns, whereClause, filter.Page.OrderBy(), argIndex, argIndex+1,
	)

	args = append(args, filter.Page.PerPage, filter.Page.Offset)

	ctx, end := database.TraceQuery(ctx, "ListVouchers", query)
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var totalCount int
	vouchers := make([]domain.Voucher, 0)

	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(
			&v.ID,
			&v.Code,
			&v.DiscountType,
			&v.DiscountValue,
			&v.MaxDiscount,
			&v.UsageLimit,
			&v.UsedCount,
			&v.MinOrderValue,
			&v.Categories,
			&v.StartDate,
			&v.EndDate,
			&v.IsActive,
			&v.CreatedAt,
			&v.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan voucher row: %w", err)
		}
		vouchers = append(vouchers, v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate voucher rows: %w", err)
	}

	return vouchers, totalCount, nil
}

// Create inserts a new voucher. A duplicate code maps to AlreadyExists.
func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	query := `
		INSERT INTO vouchers (id, code, discount_type, discount_value, max_discount, usage_limit,
			used_count, min_order_value, categories, start_date, end_date, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateVoucher", query)
	_, err := r.pool.Exec(ctx, query,
		v.ID,
		v.Code,
		v.DiscountType,
		v.DiscountValue,
		v.MaxDiscount,
		v.UsageLimit,
		v.UsedCount,
		v.MinOrderValue,
		v.Categories,
		v.StartDate,
		v.EndDate,
		v.IsActive,
		v.CreatedAt,
		v.UpdatedAt,
	)
	end(err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("voucher", "code", v.Code)
		}
		return fmt.Errorf("insert voucher: %w", err)
	}

	return nil
}

// Update replaces the voucher's configurable fields. UsedCount is untouched:
// it only moves through redemption in the checkout transaction.
func (r *VoucherRepository) Update(ctx context.Context, v *domain.Voucher) error {
	query := `
		UPDATE vouchers
		SET discount_type = $1, discount_value = $2, max_discount = $3, usage_limit = $4,
			min_order_value = $5, categories = $6, start_date = $7, end_date = $8,
			is_active = $9, updated_at = $10
		WHERE id = $11`

	v.UpdatedAt = time.Now().UTC()

	ctx, end := database.TraceQuery(ctx, "UpdateVoucher", query)
	ct, err := r.pool.Exec(ctx, query,
		v.DiscountType,
		v.DiscountValue,
		v.MaxDiscount,
		v.UsageLimit,
		v.MinOrderValue,
		v.Categories,
		v.StartDate,
		v.EndDate,
		v.IsActive,
		v.UpdatedAt,
		v.ID,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("update voucher: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("voucher", v.ID)
	}

	return nil
}

// Delete removes a voucher.
func (r *VoucherRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM vouchers WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteVoucher", query)
	ct, err := r.pool.Exec(ctx, query, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete voucher: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("voucher", id)
	}

	return nil
}
