// internal/core/domain/auth.go
package domain

// Role separates administrators from cashiers.
type Role string

const (
	RoleAdmin Role = "admin"
	RolePOS   Role = "pos"
)

// Principal is an authenticated session bound to one terminal.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Terminal string `json:"terminal"`
	Session  string `json:"session,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanView reports whether the principal may read data scoped to terminal.
// Cashiers only see their own terminal.
func (p Principal) CanView(terminal string) bool {
	return p.IsAdmin() || p.Terminal == terminal
}

// DefaultView is the terminal a dashboard opens on.
func (p Principal) DefaultView() string {
	if p.IsAdmin() {
		return TerminalAll
	}
	return p.Terminal
}
