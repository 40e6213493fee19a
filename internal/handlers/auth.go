package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthService is the authentication service used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (types.User, auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (types.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (types.User, auth.TokenPair, error)
	GoogleAuth(ctx context.Context, token string) (types.User, auth.TokenPair, error)
}

// UserLookup loads the current user.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// AuthHandler provides the token endpoints.
type AuthHandler struct {
	service AuthService
	users   UserLookup
	logger  *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(service AuthService, users UserLookup, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, users: users, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authn *Authenticator) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh", handler.Refresh)
	r.Post("/google", handler.Google)
	r.Post("/logout", handler.Logout)
	r.With(authn.RequireAuth).Get("/me", handler.Me)
}

// Register creates a new user account and returns a token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, pair, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to register")
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, pair, err := h.service.GoogleAuth(r.Context(), req.Token)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout only acknowledges the request. Tokens are stateless, so the client
// discards them.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, auth.ErrUnauthorized, "")
		return
	}

	user, err := h.users.GetByID(r.Context(), principal.ID)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

func (req *RegisterRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *LoginRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type GoogleAuthRequest struct {
	Token string `json:"token" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100"`
}
