// internal/adapters/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

const tokenIssuer = "pos-ledger"

var signingMethod = jwt.SigningMethodHS256

// Claims is the session token payload. The token id doubles as the cart
// session id.
type Claims struct {
	Role     domain.Role `json:"role"`
	Terminal string      `json:"terminal"`
	jwt.RegisteredClaims
}

// JWTManager issues HS256 session tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.TokenManager = (*JWTManager)(nil)

// NewJWTManager creates a token manager signing with secret.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (m *JWTManager) Issue(p domain.Principal) (string, error) {
	now := m.now()
	claims := Claims{
		Role:     p.Role,
		Terminal: p.Terminal,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its principal. Any failure is reported as
// domain.ErrInvalidCredentials.
func (m *JWTManager) Verify(token string) (*domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}

	return &domain.Principal{
		Username: claims.Subject,
		Role:     claims.Role,
		Terminal: claims.Terminal,
		Session:  claims.ID,
	}, nil
}
