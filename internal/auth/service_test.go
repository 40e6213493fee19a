package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserRepo struct {
	mu        sync.Mutex
	byID      map[int]types.User
	nextID    int
	createErr error
	creates   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int]types.User{}, nextID: 1}
}

func (m *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) find(match func(types.User) bool) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return m.find(func(u types.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Username == username })
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return types.User{}, m.createErr
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUserRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	m.byID[id] = u
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.byID[id] = u
	return nil
}

func (m *memUserRepo) setActive(id int, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	u.IsActive = active
	m.byID[id] = u
}

type eventLog struct {
	events []string
}

func (e *eventLog) AuthEvent(event, outcome string) {
	e.events = append(e.events, event+":"+outcome)
}

type serviceFixture struct {
	svc      *Service
	repo     *memUserRepo
	codec    *Codec
	recorder *eventLog
	now      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     newMemUserRepo(),
		codec:    newTestCodec(t),
		recorder: &eventLog{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.codec.now = func() time.Time { return f.now }
	policy, err := NewSessionPolicy(f.codec, 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	f.svc = NewService(f.repo, NewHasher(bcrypt.MinCost), policy,
		WithRecorder(f.recorder),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func TestRegister(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.Register(ctx, " cook@example.com ", "cook", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "cook@example.com", user.Email)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)

	claims, err := f.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.Equal(t, []string{"register:success"}, f.recorder.events)
}

func TestRegisterDuplicates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	_, _, err = f.svc.Register(ctx, "cook@example.com", "other", "s3cretpass")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, _, err = f.svc.Register(ctx, "other@example.com", "cook", "s3cretpass")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	assert.Equal(t, 1, f.repo.creates, "duplicates are rejected before any write")
}

func TestRegisterLostRace(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.repo.createErr = store.ErrDuplicateEmail
	_, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	f.repo.createErr = store.ErrDuplicateUsername
	_, _, err = f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegisterMissingFields(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Register(context.Background(), "cook@example.com", "  ", "s3cretpass")
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Zero(t, f.repo.creates)
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	user, pair, err := f.svc.Login(ctx, "cook@example.com", "s3cretpass")
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)
	assert.True(t, user.LastLogin.Equal(f.now))

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(f.now))

	claims, err := f.codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, KindRefresh, claims.Kind)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	_, _, unknownErr := f.svc.Login(ctx, "nobody@example.com", "s3cretpass")
	_, _, wrongErr := f.svc.Login(ctx, "cook@example.com", "wrong-pass")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)
	f.repo.setActive(user.ID, false)

	_, _, err = f.svc.Login(ctx, "cook@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrAccountInactive)

	// A wrong password never reveals that the account is inactive.
	_, _, err = f.svc.Login(ctx, "cook@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, pair, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	_, refreshed, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	before, err := f.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	after, err := f.codec.Decode(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, after.IssuedAt.After(before.IssuedAt))
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	// The old refresh token keeps working until it expires.
	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user, pair, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	_, _, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, _, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.repo.setActive(user.ID, false)
	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountInactive)

	orphan, err := f.codec.Encode(Identity{Subject: "999"}, KindRefresh, time.Hour)
	require.NoError(t, err)
	_, _, err = f.svc.Refresh(ctx, orphan)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)

	f.now = f.now.Add(8 * 24 * time.Hour)
	f.repo.setActive(user.ID, true)
	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	user, _, err := f.svc.Register(ctx, "cook@example.com", "cook", "s3cretpass")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, user.ID, "wrong-pass", "n3wpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "s3cretpass", "n3wpassword"))

	_, _, err = f.svc.Login(ctx, "cook@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "cook@example.com", "n3wpassword")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, 999, "x", "n3wpassword"), ErrPrincipalNotFound)
}

func TestGoogleAuthNotImplemented(t *testing.T) {
	f := newServiceFixture(t)
	_, _, err := f.svc.GoogleAuth(context.Background(), "id-token")
	assert.ErrorIs(t, err, ErrNotImplemented)
}
