package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/holaphone/order-service/internal/domain"
	apperrors "github.com/holaphone/order-service/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. The cart
// itself is owned by the storefront; checkout only reads it and prunes the
// lines it consumed.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// RemoveLines deletes the given variant lines from the user's cart. An empty
// resulting cart is removed entirely.
func (r *CartRepository) RemoveLines(ctx context.Context, userID string, variantIDs []string) error {
	cart, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}

	consumed := make(map[string]bool, len(variantIDs))
	for _, id := range variantIDs {
		consumed[id] = true
	}

	remaining := cart.Lines[:0]
	for _, line := range cart.Lines {
		if !consumed[line.VariantID] {
			remaining = append(remaining, line)
		}
	}
	cart.Lines = remaining
	cart.UpdatedAt = time.Now().UTC()

	key := keyPrefix + userID

	if len(cart.Lines) == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del cart: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}
