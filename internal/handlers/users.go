package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserService is the user and social graph service used by UserHandler.
type UserService interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	UpdateProfile(ctx context.Context, id int, update services.ProfileUpdate) (types.User, error)
	Profile(ctx context.Context, username string, viewerID int) (types.UserProfile, error)
	Follow(ctx context.Context, followerID, targetID int) error
	Unfollow(ctx context.Context, followerID, targetID int) error
	Followers(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error)
	Following(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error)
}

// PasswordChanger updates a user's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error
}

// SavedLister lists the recipes a user saved.
type SavedLister interface {
	Saved(ctx context.Context, userID, offset, limit int) ([]types.RecipeListItem, error)
}

type UserHandler struct {
	users     UserService
	passwords PasswordChanger
	saved     SavedLister
	logger    *slog.Logger
}

func NewUserHandler(users UserService, passwords PasswordChanger, saved SavedLister, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, passwords: passwords, saved: saved, logger: logger}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authn *Authenticator) {
	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAuth)
		r.Get("/me", handler.GetMe)
		r.Put("/me", handler.UpdateMe)
		r.Put("/me/password", handler.ChangePassword)
		r.Get("/me/saved", handler.ListSaved)
		r.Post("/{userID}/follow", handler.Follow)
		r.Delete("/{userID}/follow", handler.Unfollow)
	})
	r.With(authn.OptionalAuth).Get("/{username}/profile", handler.GetProfile)
	r.Get("/{userID}/followers", handler.ListFollowers)
	r.Get("/{userID}/following", handler.ListFollowing)
}

type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitnil,min=3,max=50"`
	Bio       *string `json:"bio" validate:"omitnil,max=500"`
	AvatarURL *string `json:"avatar_url" validate:"omitnil,max=500"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), viewerID(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial profile update to the current user.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), viewerID(r.Context()), services.ProfileUpdate{
		Username:  req.Username,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(w, r, h.logger, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.passwords.ChangePassword(r.Context(), viewerID(r.Context()), req.OldPassword, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, "incorrect password")
		return
	}
	if err != nil {
		respondError(w, r, h.logger, err, "failed to change password")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

func (h *UserHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, services.DefaultPageSize, services.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.saved.Saved(r.Context(), viewerID(r.Context()), skip, limit)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to list saved recipes")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetProfile returns the public profile for a username. is_following is only
// set when the request is authenticated.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := h.users.Profile(r.Context(), username, viewerID(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	targetID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.Follow(r.Context(), viewerID(r.Context()), targetID); err != nil {
		respondError(w, r, h.logger, err, "failed to follow user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully followed user"})
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	targetID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.Unfollow(r.Context(), viewerID(r.Context()), targetID); err != nil {
		respondError(w, r, h.logger, err, "failed to unfollow user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully unfollowed user"})
}

func (h *UserHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	h.listEdges(w, r, h.users.Followers, "failed to list followers")
}

func (h *UserHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	h.listEdges(w, r, h.users.Following, "failed to list following")
}

func (h *UserHandler) listEdges(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error),
	fallback string,
) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, limit, err := parsePagination(r, services.DefaultFeedSize, services.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := list(r.Context(), userID, skip, limit)
	if err != nil {
		respondError(w, r, h.logger, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
