package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

var errMissingToken = errors.New("missing bearer token")

// Principal is the identity resolved for a single request.
type Principal struct {
	ID       int
	Email    string
	Role     types.Role
	IsActive bool
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == types.RoleAdmin
}

// PrincipalLookup loads the user behind a token subject.
type PrincipalLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Guard resolves bearer tokens into principals.
type Guard struct {
	codec  *Codec
	users  PrincipalLookup
	logger *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(codec *Codec, users PrincipalLookup, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{codec: codec, users: users, logger: logger}
}

// ResolvePrincipal returns nil when no token is presented. A token that is
// present must be a valid access token for an existing user.
func (g *Guard) ResolvePrincipal(ctx context.Context, bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, nil
	}

	claims, err := g.codec.Decode(bearer)
	if err != nil {
		return nil, err
	}
	if !VerifyKind(claims, KindAccess) {
		return nil, ErrWrongTokenKind
	}
	userID, err := subjectID(claims)
	if err != nil {
		return nil, err
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}

	return &Principal{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}

// RequireActivePrincipal resolves an active principal or fails with
// ErrUnauthorized. The underlying cause is only logged.
func (g *Guard) RequireActivePrincipal(ctx context.Context, bearer string) (Principal, error) {
	if bearer == "" {
		g.reject(ctx, errMissingToken)
		return Principal{}, ErrUnauthorized
	}

	principal, err := g.ResolvePrincipal(ctx, bearer)
	if err != nil {
		g.reject(ctx, err)
		return Principal{}, ErrUnauthorized
	}
	if !principal.IsActive {
		g.reject(ctx, ErrAccountInactive, "user_id", principal.ID)
		return Principal{}, ErrUnauthorized
	}
	return *principal, nil
}

func (g *Guard) reject(ctx context.Context, cause error, args ...any) {
	args = append(args, "cause", cause.Error())
	switch {
	case errors.Is(cause, errMissingToken),
		errors.Is(cause, ErrInvalidToken),
		errors.Is(cause, ErrExpiredToken),
		errors.Is(cause, ErrWrongTokenKind),
		errors.Is(cause, ErrPrincipalNotFound),
		errors.Is(cause, ErrAccountInactive):
		g.logger.InfoContext(ctx, "request unauthorized", args...)
	default:
		g.logger.WarnContext(ctx, "request unauthorized", args...)
	}
}

// CheckOwnership reports whether p may mutate a resource owned by ownerID.
func CheckOwnership(p Principal, ownerID int) bool {
	return p.ID == ownerID || p.IsAdmin()
}

// Authorize is CheckOwnership returning ErrForbidden on denial.
func Authorize(p Principal, ownerID int) error {
	if !CheckOwnership(p, ownerID) {
		return ErrForbidden
	}
	return nil
}
