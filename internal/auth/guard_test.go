package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/feastro/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*Guard, *Codec, *memUserRepo) {
	t.Helper()
	codec := newTestCodec(t)
	repo := newMemUserRepo()
	repo.byID[5] = types.User{ID: 5, Email: "five@example.com", Role: types.RoleUser, IsActive: true}
	repo.byID[6] = types.User{ID: 6, Email: "six@example.com", Role: types.RoleUser, IsActive: false}
	repo.byID[7] = types.User{ID: 7, Email: "admin@example.com", Role: types.RoleAdmin, IsActive: true}
	guard := NewGuard(codec, repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return guard, codec, repo
}

func encodeFor(t *testing.T, codec *Codec, subject string, kind TokenKind) string {
	t.Helper()
	token, err := codec.Encode(Identity{Subject: subject}, kind, time.Hour)
	require.NoError(t, err)
	return token
}

func TestResolvePrincipal(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	ctx := context.Background()

	p, err := guard.ResolvePrincipal(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = guard.ResolvePrincipal(ctx, encodeFor(t, codec, "5", KindAccess))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, Principal{ID: 5, Email: "five@example.com", Role: types.RoleUser, IsActive: true}, *p)

	_, err = guard.ResolvePrincipal(ctx, encodeFor(t, codec, "5", KindRefresh))
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = guard.ResolvePrincipal(ctx, encodeFor(t, codec, "404", KindAccess))
	assert.ErrorIs(t, err, ErrPrincipalNotFound)

	_, err = guard.ResolvePrincipal(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Inactive principals still resolve; only the required variant rejects them.
	p, err = guard.ResolvePrincipal(ctx, encodeFor(t, codec, "6", KindAccess))
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestRequireActivePrincipalCollapsesFailures(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	ctx := context.Background()

	for name, token := range map[string]string{
		"missing":  "",
		"garbage":  "bogus",
		"refresh":  encodeFor(t, codec, "5", KindRefresh),
		"unknown":  encodeFor(t, codec, "404", KindAccess),
		"inactive": encodeFor(t, codec, "6", KindAccess),
	} {
		_, err := guard.RequireActivePrincipal(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized, name)
	}

	p, err := guard.RequireActivePrincipal(ctx, encodeFor(t, codec, "7", KindAccess))
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestOwnership(t *testing.T) {
	owner := Principal{ID: 5, Role: types.RoleUser, IsActive: true}
	other := Principal{ID: 6, Role: types.RoleUser, IsActive: true}
	admin := Principal{ID: 7, Role: types.RoleAdmin, IsActive: true}

	assert.True(t, CheckOwnership(owner, 5))
	assert.False(t, CheckOwnership(other, 5))
	assert.True(t, CheckOwnership(admin, 5))

	assert.NoError(t, Authorize(owner, 5))
	assert.ErrorIs(t, Authorize(other, 5), ErrForbidden)
	assert.NoError(t, Authorize(admin, 5))
}
