package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/pkg/database"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

const variantColumns = `id, product_id, name, sku, category_id, price, stock`

// CatalogRepository implements read access to the variant catalog.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetVariant retrieves a variant by its ID.
func (r *CatalogRepository) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	query := fmt.Sprintf(`SELECT %s FROM variants WHERE id = $1`, variantColumns)

	ctx, end := database.TraceQuery(ctx, "GetVariant", query)

	var v domain.Variant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.ProductID,
		&v.Name,
		&v.SKU,
		&v.CategoryID,
		&v.Price,
		&v.Stock,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}

	return &v, nil
}

// GetVariants retrieves multiple variants keyed by ID. Missing IDs are simply
// absent from the map; callers decide whether that is an error.
func (r *CatalogRepository) GetVariants(ctx context.Context, ids []string) (map[string]*domain.Variant, error) {
	if len(ids) == 0 {
		return map[string]*domain.Variant{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM variants WHERE id = ANY($1)`, variantColumns)

	ctx, end := database.TraceQuery(ctx, "GetVariants", query)
	rows, err := r.pool.Query(ctx, query, ids)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Variant, len(ids))
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.Name,
			&v.SKU,
			&v.CategoryID,
			&v.Price,
			&v.Stock,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		out[v.ID] = &v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return out, nil
}
