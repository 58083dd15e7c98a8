// internal/adapters/redis/cart_store.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// CartStore keeps session carts as JSON documents. Every save renews the TTL,
// so a cart expires only after the session goes idle.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.CartStore = (*CartStore)(nil)

func NewCartStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartStore {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &CartStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cart_store")),
	}
}

func cartKey(sessionID string) string {
	return BuildKey(PrefixCart, sessionID)
}

// Get returns the stored cart, or nil when the session has none.
func (s *CartStore) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable cart",
			slog.String("session", sessionID),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return &cart, nil
}

func (s *CartStore) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
