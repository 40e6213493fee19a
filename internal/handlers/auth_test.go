package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func authRouter(service *fakeAuthService) http.Handler {
	users := fakeUserLookup{1: {ID: 1, Email: "alice@example.com", Username: "alice", IsActive: true}}
	handler := NewAuthHandler(service, users, discardLogger())
	return newRouter(func(r chi.Router) { AuthRouter(r, handler, testAuthenticator()) })
}

func TestRegisterReturnsTokenPair(t *testing.T) {
	service := &fakeAuthService{pair: auth.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer", ExpiresIn: 1800}}
	rec := doRequest(t, authRouter(service), http.MethodPost, "/register",
		`{"email":" alice@example.com ","username":" alice\t","password":"s3cretpass"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.Equal(t, "a", pair.AccessToken)
	assert.Equal(t, "r", pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, "alice@example.com", service.email)
	assert.Equal(t, "alice", service.username)
}

func TestLoginTrimsEmail(t *testing.T) {
	service := &fakeAuthService{pair: auth.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}}
	rec := doRequest(t, authRouter(service), http.MethodPost, "/login",
		`{"email":"  alice@example.com","password":"s3cretpass"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", service.email)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short password", `{"email":"a@example.com","username":"alice","password":"short"}`, "password must be at least 8"},
		{"bad email", `{"email":"nope","username":"alice","password":"s3cretpass"}`, "email must be a valid email address"},
		{"blank username", `{"email":"a@example.com","username":"   ","password":"s3cretpass"}`, "username is required"},
		{"short username", `{"email":"a@example.com","username":"al","password":"s3cretpass"}`, "username must be at least 3"},
		{"unknown field", `{"email":"a@example.com","username":"alice","password":"s3cretpass","role":"admin"}`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, authRouter(&fakeAuthService{}), http.MethodPost, "/register", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := &fakeAuthService{err: auth.ErrDuplicateEmail}
	rec := doRequest(t, authRouter(service), http.MethodPost, "/register",
		`{"email":"alice@example.com","username":"alice","password":"s3cretpass"}`, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.ErrDuplicateEmail.Error(), decodeError(t, rec))
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"inactive", auth.ErrAccountInactive, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, authRouter(&fakeAuthService{err: tt.err}), http.MethodPost, "/login",
				`{"email":"alice@example.com","password":"whatever1"}`, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestLoginUnknownErrorHidesCause(t *testing.T) {
	rec := doRequest(t, authRouter(&fakeAuthService{err: errors.New("pq: connection reset")}), http.MethodPost, "/login",
		`{"email":"alice@example.com","password":"whatever1"}`, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to authenticate", decodeError(t, rec))
}

func TestRefreshRequiresToken(t *testing.T) {
	rec := doRequest(t, authRouter(&fakeAuthService{}), http.MethodPost, "/refresh", `{}`, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "refresh_token is required", decodeError(t, rec))
}

func TestRefreshWithAccessTokenIsUnauthorized(t *testing.T) {
	rec := doRequest(t, authRouter(&fakeAuthService{err: auth.ErrWrongTokenKind}), http.MethodPost, "/refresh",
		`{"refresh_token":"abc"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestGoogleIsNotImplemented(t *testing.T) {
	rec := doRequest(t, authRouter(&fakeAuthService{}), http.MethodPost, "/google", `{"token":"id-token"}`, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestLogout(t *testing.T) {
	rec := doRequest(t, authRouter(&fakeAuthService{}), http.MethodPost, "/logout", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Successfully logged out", resp.Message)
}

func TestMe(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	rec := doRequest(t, router, http.MethodGet, "/me", "", "alice-token")
	require.Equal(t, http.StatusOK, rec.Code)
	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.NotContains(t, rec.Body.String(), "hashed_password")

	rec = doRequest(t, router, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
