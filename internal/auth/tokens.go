// Package auth provides the token codec and password hashing used by
// the credential and session endpoints.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/linklytics/apiserver/types"
)

var (
	// ErrTokenInvalid is returned when a token fails signature or
	// structural verification.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when a token verifies but its
	// expiry claim is in the past.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the claim set carried by both token kinds. Refresh tokens
// leave Role empty.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenManager signs and verifies access and refresh tokens with a
// process-wide HMAC secret. The secret is read-only after construction
// and safe for concurrent use.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager constructs a TokenManager from the signing secret and
// the two expiry horizons.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken signs a short-lived bearer token carrying the user's
// id and role. Each token gets a unique jti: iat has second precision,
// so without it two tokens minted back-to-back would be identical.
func (m *TokenManager) IssueAccessToken(user types.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		Role: user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// IssueRefreshToken signs a long-lived token carrying only the user's
// id. It is the sole credential the refresh operation accepts.
func (m *TokenManager) IssueRefreshToken(user types.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAccessToken verifies an access token and returns the subject id
// and role. Claims are only read after signature and expiry checks pass.
func (m *TokenManager) ParseAccessToken(tokenString string) (int, string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return 0, "", err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return 0, "", err
	}
	return userID, claims.Role, nil
}

// ParseRefreshToken verifies a refresh token and returns the subject id.
func (m *TokenManager) ParseRefreshToken(tokenString string) (int, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

func (m *TokenManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func subjectID(claims *Claims) (int, error) {
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID < 1 {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}
