package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastro/apiserver/internal/auth"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

var (
	errMissingAuthorization   = errors.New("missing authorization")
	errMalformedAuthorization = errors.New("invalid authorization")
)

// PrincipalResolver is the part of the authorization guard the middleware
// needs.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, bearer string) (*auth.Principal, error)
	RequireActivePrincipal(ctx context.Context, bearer string) (auth.Principal, error)
}

// Authenticator turns bearer tokens into request principals.
type Authenticator struct {
	guard  PrincipalResolver
	logger *slog.Logger
}

func NewAuthenticator(guard PrincipalResolver, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{guard: guard, logger: logger}
}

// RequireAuth rejects requests without an active principal with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			a.logger.InfoContext(r.Context(), "request unauthorized", "cause", err.Error())
			respondError(w, r, a.logger, auth.ErrUnauthorized, "failed to authenticate")
			return
		}

		principal, err := a.guard.RequireActivePrincipal(r.Context(), token)
		if err != nil {
			respondError(w, r, a.logger, err, "failed to authenticate")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// OptionalAuth lets anonymous requests through but rejects a token that is
// present and invalid.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if errors.Is(err, errMissingAuthorization) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			respondError(w, r, a.logger, auth.ErrInvalidToken, "failed to authenticate")
			return
		}

		principal, err := a.guard.ResolvePrincipal(r.Context(), token)
		if err != nil {
			a.logger.InfoContext(r.Context(), "optional auth rejected token", "cause", err.Error())
			respondError(w, r, a.logger, err, "failed to authenticate")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), *principal)))
	})
}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, p)
}

func principalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(contextPrincipalKey).(auth.Principal)
	return p, ok
}

// viewerID returns the principal id, or 0 for anonymous requests.
func viewerID(ctx context.Context) int {
	if p, ok := principalFromContext(ctx); ok {
		return p.ID
	}
	return 0
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errMalformedAuthorization
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errMalformedAuthorization
	}
	return token, nil
}
