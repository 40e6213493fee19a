package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/services"
)

// statusFor maps a domain error to its HTTP status. ok is false for errors
// that have no client-facing meaning.
func statusFor(err error) (status int, ok bool) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, true

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenKind),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrPrincipalNotFound),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, true

	case errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, true

	case errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, auth.ErrDuplicateUsername),
		errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrAlreadyFollowing),
		errors.Is(err, services.ErrAlreadyLiked),
		errors.Is(err, services.ErrAlreadySaved):
		return http.StatusBadRequest, true

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRecipeNotFound),
		errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrNotFollowing),
		errors.Is(err, services.ErrNotLiked),
		errors.Is(err, services.ErrNotSaved):
		return http.StatusNotFound, true

	case errors.Is(err, auth.ErrNotImplemented):
		return http.StatusNotImplemented, true

	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, true
	}
	return http.StatusInternalServerError, false
}

// respondError writes err with its mapped status. Unknown errors are logged
// and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status, ok := statusFor(err)
	if !ok {
		logger.ErrorContext(r.Context(), fallback, "error", err, "path", r.URL.Path)
		writeError(w, status, fallback)
		return
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeError(w, status, err.Error())
}
