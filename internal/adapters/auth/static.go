// internal/adapters/auth/static.go
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

// Credential is one entry of the static login table.
type Credential struct {
	Username     string
	PasswordHash string
	Role         domain.Role
	Terminal     string
}

// ParseCredentials reads comma separated user:bcrypthash:role:terminal entries.
func ParseCredentials(raw string) ([]Credential, error) {
	var creds []Credential
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid credential entry %q: want user:hash:role:terminal", entry)
		}

		role := domain.Role(strings.ToLower(strings.TrimSpace(parts[2])))
		if role != domain.RoleAdmin && role != domain.RolePOS {
			return nil, fmt.Errorf("invalid role %q for user %s", parts[2], parts[0])
		}
		creds = append(creds, Credential{
			Username:     strings.TrimSpace(parts[0]),
			PasswordHash: strings.TrimSpace(parts[1]),
			Role:         role,
			Terminal:     strings.ToUpper(strings.TrimSpace(parts[3])),
		})
	}
	return creds, nil
}

// DevelopmentCredentials hashes the built-in accounts used when no table is
// configured outside production.
func DevelopmentCredentials() ([]Credential, error) {
	plain := []struct {
		user, password string
		role           domain.Role
		terminal       string
	}{
		{"admin", "admin123", domain.RoleAdmin, domain.TerminalAll},
		{"pos1", "pos1123", domain.RolePOS, domain.TerminalPOS1},
		{"pos2", "pos2123", domain.RolePOS, domain.TerminalPOS2},
		{"pos3", "pos3123", domain.RolePOS, domain.TerminalPOS3},
	}

	creds := make([]Credential, 0, len(plain))
	for _, p := range plain {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", p.user, err)
		}
		creds = append(creds, Credential{
			Username:     p.user,
			PasswordHash: string(hash),
			Role:         p.role,
			Terminal:     p.terminal,
		})
	}
	return creds, nil
}

// StaticAuthenticator checks logins against a fixed bcrypt table.
type StaticAuthenticator struct {
	users  map[string]Credential
	logger *slog.Logger
}

var _ ports.Authenticator = (*StaticAuthenticator)(nil)

// NewStaticAuthenticator creates an authenticator over creds. Usernames are
// matched case-insensitively.
func NewStaticAuthenticator(creds []Credential, logger *slog.Logger) *StaticAuthenticator {
	users := make(map[string]Credential, len(creds))
	for _, c := range creds {
		users[strings.ToLower(c.Username)] = c
	}
	return &StaticAuthenticator{
		users:  users,
		logger: logger.With(slog.String("component", "authenticator")),
	}
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) (*domain.Principal, error) {
	cred, ok := a.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok || password == "" {
		a.logger.WarnContext(ctx, "login rejected", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		a.logger.WarnContext(ctx, "login rejected", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	a.logger.InfoContext(ctx, "login accepted",
		slog.String("username", cred.Username),
		slog.String("terminal", cred.Terminal))
	return &domain.Principal{
		Username: cred.Username,
		Role:     cred.Role,
		Terminal: cred.Terminal,
	}, nil
}
