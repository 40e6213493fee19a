package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

// UserRepository is the persistence the authentication service depends on.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// Recorder receives authentication outcomes, e.g. for metrics.
type Recorder interface {
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

// Service orchestrates registration, login and token refresh.
type Service struct {
	users    UserRepository
	hasher   *Hasher
	policy   *SessionPolicy
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	// dummyHash is verified when a login email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the clock used for last_login timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(users UserRepository, hasher *Hasher, policy *SessionPolicy, opts ...Option) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if dummy, err := hasher.Hash("feastro-login-timing"); err == nil {
		s.dummyHash = dummy
	}
	return s
}

// Register creates a user account and returns it with a fresh token pair.
// Both uniqueness checks run before anything is written.
func (s *Service) Register(ctx context.Context, email, username, password string) (types.User, TokenPair, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return types.User{}, TokenPair{}, ErrMissingFields
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.recorder.AuthEvent("register", "duplicate_email")
		return types.User{}, TokenPair{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, TokenPair{}, fmt.Errorf("check email: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		s.recorder.AuthEvent("register", "duplicate_username")
		return types.User{}, TokenPair{}, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, TokenPair{}, fmt.Errorf("check username: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         types.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		// Lost a race with a concurrent registration; the unique
		// constraint is the backstop.
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			s.recorder.AuthEvent("register", "duplicate_email")
			return types.User{}, TokenPair{}, ErrDuplicateEmail
		case errors.Is(err, store.ErrDuplicateUsername):
			s.recorder.AuthEvent("register", "duplicate_username")
			return types.User{}, TokenPair{}, ErrDuplicateUsername
		}
		return types.User{}, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.policy.IssuePair(user)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}
	s.recorder.AuthEvent("register", "success")
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, pair, nil
}

// Login verifies credentials, records the login time and returns a fresh
// token pair. An unknown email and a wrong password yield the same error.
func (s *Service) Login(ctx context.Context, email, password string) (types.User, TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, TokenPair{}, fmt.Errorf("load user: %w", err)
		}
		if s.dummyHash != "" {
			s.hasher.Verify(password, s.dummyHash)
		}
		s.recorder.AuthEvent("login", "invalid_credentials")
		return types.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recorder.AuthEvent("login", "invalid_credentials")
		return types.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recorder.AuthEvent("login", "inactive")
		return types.User{}, TokenPair{}, ErrAccountInactive
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return types.User{}, TokenPair{}, fmt.Errorf("record last login: %w", err)
	}
	user.LastLogin = &now

	pair, err := s.policy.IssuePair(user)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}
	s.recorder.AuthEvent("login", "success")
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair. The old
// refresh token is not revoked and its lifetime is not extended.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (types.User, TokenPair, error) {
	claims, err := s.policy.Codec().Decode(refreshToken)
	if err != nil {
		s.recorder.AuthEvent("refresh", "invalid_token")
		return types.User{}, TokenPair{}, err
	}
	if !VerifyKind(claims, KindRefresh) {
		s.recorder.AuthEvent("refresh", "wrong_kind")
		return types.User{}, TokenPair{}, ErrWrongTokenKind
	}

	userID, err := subjectID(claims)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recorder.AuthEvent("refresh", "user_not_found")
			return types.User{}, TokenPair{}, ErrPrincipalNotFound
		}
		return types.User{}, TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		s.recorder.AuthEvent("refresh", "inactive")
		return types.User{}, TokenPair{}, ErrAccountInactive
	}

	pair, err := s.policy.IssuePair(user)
	if err != nil {
		return types.User{}, TokenPair{}, err
	}
	s.recorder.AuthEvent("refresh", "success")
	return user, pair, nil
}

// GoogleAuth would verify a Google ID token and link or create the account.
func (s *Service) GoogleAuth(ctx context.Context, token string) (types.User, TokenPair, error) {
	return types.User{}, TokenPair{}, ErrNotImplemented
}

// ChangePassword replaces the stored digest after checking the current
// password. Existing tokens stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}
