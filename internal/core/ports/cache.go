// internal/core/ports/cache.go
package ports

import (
	"context"
	"time"

	"github.com/ammerola/pos-ledger/internal/core/domain"
)

// CacheRepository defines the interface for cache operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value any) error
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)

	// GetOrSet reads key into dest, calling fetch and caching its result on a miss.
	GetOrSet(ctx context.Context, key string, dest any,
		fetch func() (any, error), ttl time.Duration) error

	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
}

// CartStore keeps one in-progress cart per session. Carts are not durable:
// an expired session loses its cart.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
	Clear(ctx context.Context, sessionID string) error
}
