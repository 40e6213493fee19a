package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Identity is the caller-supplied part of the token claims.
type Identity struct {
	Subject string
	Email   string
}

// Claims are the verified contents of a token.
type Claims struct {
	ID        string
	Subject   string
	Email     string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string    `json:"email"`
	Kind  TokenKind `json:"type"`
}

// Codec signs and verifies self-contained JWTs with a process-wide HMAC
// secret.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewCodec returns a Codec for the given secret and algorithm name
// (HS256, HS384 or HS512). An empty algorithm selects HS256.
func NewCodec(secret, algorithm string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
	return &Codec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// Encode issues a token of the given kind that expires ttl after now.
func (c *Codec) Encode(id Identity, kind TokenKind, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	now := c.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: id.Email,
		Kind:  kind,
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies tokenString and returns its claims. It fails with
// ErrExpiredToken for a correctly signed token past its expiry and with
// ErrInvalidToken for anything else.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, claims.Kind)
	}

	out := Claims{
		ID:      claims.ID,
		Subject: claims.Subject,
		Email:   claims.Email,
		Kind:    claims.Kind,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// VerifyKind reports whether claims carry the expected kind.
func VerifyKind(claims Claims, expected TokenKind) bool {
	return claims.Kind == expected
}
