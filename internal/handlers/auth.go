// internal/handlers/auth.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/pos-ledger/internal/core/domain"
	"github.com/ammerola/pos-ledger/internal/core/ports"
)

type AuthHandler struct {
	auth   ports.Authenticator
	tokens ports.TokenManager
	logger *slog.Logger
}

func NewAuthHandler(auth ports.Authenticator, tokens ports.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		logger: logger.With(slog.String("handler", "auth")),
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Terminal string      `json:"terminal"`
	Role     domain.Role `json:"role"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondDomainError(w, r, h.logger, "login failed", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	p, err := h.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected", slog.String("username", req.Username))
		respondDomainError(w, r, h.logger, "login failed", err)
		return
	}

	token, err := h.tokens.Issue(*p)
	if err != nil {
		respondDomainError(w, r, h.logger, "failed to issue token", err)
		return
	}

	h.logger.InfoContext(ctx, "login succeeded",
		slog.String("username", p.Username),
		slog.String("terminal", p.Terminal))

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: p.Username,
		Terminal: p.Terminal,
		Role:     p.Role,
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p)
}
