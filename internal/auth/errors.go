package auth

import "errors"

// Token errors. ErrExpiredToken is never reported for a token whose
// signature does not verify.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrPrincipalNotFound  = errors.New("user not found")
	ErrNotImplemented     = errors.New("google oauth not yet implemented")
	ErrMissingFields      = errors.New("email, username and password are required")
)

// Authorization errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
