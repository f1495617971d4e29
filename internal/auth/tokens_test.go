package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linklytics/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	user := types.User{ID: 42, Role: "user"}

	token, err := manager.IssueAccessToken(user)
	require.NoError(t, err)

	userID, role, err := manager.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, "user", role)
}

func TestIssuedTokensAreDistinct(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	user := types.User{ID: 42, Role: "user"}

	// iat only has second precision, so distinctness must not depend
	// on the issuance timestamps differing.
	first, err := manager.IssueAccessToken(user)
	require.NoError(t, err)
	second, err := manager.IssueAccessToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	firstRefresh, err := manager.IssueRefreshToken(user)
	require.NoError(t, err)
	secondRefresh, err := manager.IssueRefreshToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, firstRefresh, secondRefresh)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, 24*time.Hour)

	token, err := manager.IssueRefreshToken(types.User{ID: 7, Role: "user"})
	require.NoError(t, err)

	userID, err := manager.ParseRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
}

func TestRefreshTokenCarriesNoRole(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, 24*time.Hour)

	token, err := manager.IssueRefreshToken(types.User{ID: 7, Role: "admin"})
	require.NoError(t, err)

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestParseExpiredToken(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", -time.Minute, -time.Minute)

	token, err := manager.IssueAccessToken(types.User{ID: 1})
	require.NoError(t, err)

	_, _, err = manager.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	refresh, err := manager.IssueRefreshToken(types.User{ID: 1})
	require.NoError(t, err)

	_, err = manager.ParseRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseWrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager("right-secret", time.Hour, time.Hour)
	verifier := NewTokenManager("wrong-secret", time.Hour, time.Hour)

	token, err := issuer.IssueAccessToken(types.User{ID: 1})
	require.NoError(t, err)

	_, _, err = verifier.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTamperedToken(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, time.Hour)

	token, err := manager.IssueAccessToken(types.User{ID: 1})
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 0x01

	_, _, err = manager.ParseAccessToken(string(tampered))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseMalformedToken(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager("test-secret", time.Hour, time.Hour)

	_, _, err := manager.ParseAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseRejectsNonNumericSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	manager := NewTokenManager("test-secret", time.Hour, time.Hour)
	_, err = manager.ParseRefreshToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
