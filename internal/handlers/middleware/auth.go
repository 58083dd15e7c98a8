// internal/handlers/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
	"github.com/ammerola/pos-ledger/internal/pkg/logger"
)

type principalKey struct{}

// WithPrincipal stores the authenticated session in ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the session stored by Auth.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok && p != nil
}

// Auth requires a valid bearer token on every request except the public
// paths, which are matched exactly.
func Auth(tokens ports.TokenManager, public ...string) Middleware {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token",
					logger.Value(r.Context(), logger.ContextKeyRequestID))
				return
			}
			p, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token",
					logger.Value(r.Context(), logger.ContextKeyRequestID))
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.WithValue(ctx, logger.ContextKeyUsername, p.Username)
			ctx = logger.WithValue(ctx, logger.ContextKeyTerminal, p.Terminal)
			ctx = logger.WithValue(ctx, logger.ContextKeySessionID, p.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects sessions without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required",
				logger.Value(r.Context(), logger.ContextKeyRequestID))
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "administrator role required",
				logger.Value(r.Context(), logger.ContextKeyRequestID))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
