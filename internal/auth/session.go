package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/feastro/apiserver/types"
)

const (
	// TokenTypeBearer is the token_type label returned with every pair.
	TokenTypeBearer = "bearer"

	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair is what the auth endpoints return.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// SessionPolicy decides token lifetimes and issues access/refresh pairs.
type SessionPolicy struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSessionPolicy returns a policy issuing tokens through codec. Zero TTLs
// take the defaults.
func NewSessionPolicy(codec *Codec, accessTTL, refreshTTL time.Duration) (*SessionPolicy, error) {
	if codec == nil {
		return nil, errors.New("token codec is required")
	}
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if accessTTL < 0 || refreshTTL < 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &SessionPolicy{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// IssuePair signs a fresh access token and refresh token for user.
func (p *SessionPolicy) IssuePair(user types.User) (TokenPair, error) {
	id := Identity{Subject: strconv.Itoa(user.ID), Email: user.Email}

	access, err := p.codec.Encode(id, KindAccess, p.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := p.codec.Encode(id, KindRefresh, p.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(p.accessTTL / time.Second),
	}, nil
}

// Codec returns the codec the policy signs with.
func (p *SessionPolicy) Codec() *Codec {
	return p.codec
}

// subjectID parses the numeric user id carried in a token subject.
func subjectID(claims Claims) (int, error) {
	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
