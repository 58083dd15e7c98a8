// internal/core/services/cache_keys.go
package services

import (
	"context"
	"log/slog"

	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// Cache key prefixes shared with the redis adapter.
const (
	cacheKeySearch    = "search"
	cacheKeyDashboard = "dash"
)

// invalidateCache drops every key under prefixes. Failures are logged only;
// stale entries expire on their own.
func invalidateCache(ctx context.Context, cache ports.CacheRepository, logger *slog.Logger, prefixes ...string) {
	if cache == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := cache.DeletePattern(ctx, prefix+":*"); err != nil {
			logger.WarnContext(ctx, "failed to invalidate cache",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}
}
