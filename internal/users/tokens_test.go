package users

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, 24*time.Hour)
	pair, err := issuer.IssuePair(&User{ID: 42, Username: "alice"})
	require.NoError(t, err)

	access, err := issuer.Parse(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, "alice", access.Username)
	assert.NotEmpty(t, access.ID)

	refresh, err := issuer.Parse(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, 24*time.Hour)
	pair, err := issuer.IssuePair(&User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	_, err = issuer.Parse(pair.RefreshToken, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse(pair.AccessToken, TokenRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }
	pair, err := issuer.IssuePair(&User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.Parse(pair.AccessToken, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse(pair.RefreshToken, TokenRefresh)
	assert.NoError(t, err, "refresh token outlives the access token")
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour, time.Hour)
	pair, err := other.IssuePair(&User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	_, err = issuer.Parse(pair.AccessToken, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)
	claims := Claims{
		UserID:    1,
		TokenType: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Parse(unsigned, TokenAccess)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Parse(raw, TokenAccess)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}
