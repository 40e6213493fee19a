package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "HS256")
	require.NoError(t, err)
	return codec
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec("  ", "HS256")
	assert.Error(t, err)

	_, err = NewCodec(testSecret, "RS256")
	assert.Error(t, err)

	codec, err := NewCodec(testSecret, "")
	require.NoError(t, err)
	assert.Equal(t, "HS256", codec.method.Alg())
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = fixedClock(issued)

	token, err := codec.Encode(Identity{Subject: "42", Email: "cook@example.com"}, KindAccess, 30*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "cook@example.com", claims.Email)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Equal(issued))
	assert.True(t, claims.ExpiresAt.Equal(issued.Add(30*time.Minute)))
	assert.True(t, VerifyKind(claims, KindAccess))
	assert.False(t, VerifyKind(claims, KindRefresh))
}

func TestCodecTokensAreUnique(t *testing.T) {
	codec := newTestCodec(t)
	codec.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	id := Identity{Subject: "1"}

	a, err := codec.Encode(id, KindAccess, time.Minute)
	require.NoError(t, err)
	b, err := codec.Encode(id, KindAccess, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCodecEncodeRejectsBadInput(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode(Identity{}, KindAccess, time.Minute)
	assert.Error(t, err)

	_, err = codec.Encode(Identity{Subject: "1"}, KindAccess, 0)
	assert.Error(t, err)
}

func TestCodecExpiredToken(t *testing.T) {
	codec := newTestCodec(t)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = fixedClock(issued)

	token, err := codec.Encode(Identity{Subject: "1"}, KindAccess, time.Minute)
	require.NoError(t, err)

	codec.now = fixedClock(issued.Add(2 * time.Minute))
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestCodecTamperedSignature(t *testing.T) {
	codec := newTestCodec(t)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = fixedClock(issued)

	token, err := codec.Encode(Identity{Subject: "1"}, KindAccess, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// An expired token with a bad signature is invalid, not expired.
	codec.now = fixedClock(issued.Add(time.Hour))
	_, err = codec.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrExpiredToken)
	codec.now = fixedClock(issued)

	// The last character of a 43-character signature carries two unused
	// bits; flipping the lowest one must still be rejected.
	last := []byte(parts[2])
	last[len(last)-1] = flipLowBit(last[len(last)-1])
	_, err = codec.Decode(parts[0] + "." + parts[1] + "." + string(last))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodecRejectsForeignTokens(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Kind: KindAccess,
	}

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = codec.Decode(otherSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Decode(otherAlg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodecRequiresClaims(t *testing.T) {
	codec := newTestCodec(t)
	now := time.Now()
	sign := func(c tokenClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}

	noExpiry := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}, Kind: KindAccess}
	_, err := codec.Decode(sign(noExpiry))
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}, Kind: KindAccess}
	_, err = codec.Decode(sign(noSubject))
	assert.ErrorIs(t, err, ErrInvalidToken)

	badKind := tokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}, Kind: "session"}
	_, err = codec.Decode(sign(badKind))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func flipLowBit(c byte) byte {
	i := strings.IndexByte(base64URLAlphabet, c)
	return base64URLAlphabet[i^1]
}
