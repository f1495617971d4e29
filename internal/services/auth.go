package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/linklytics/apiserver/internal/auth"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
)

const defaultUserRole = "user"

var (
	// ErrInvalidCredentials is returned on any login failure. It is
	// deliberately not more specific so a caller cannot tell a wrong
	// password from an unknown email.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a refresh token verifies but
	// its subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	CreateSingle(ctx context.Context, user types.User) (types.User, error)
}

// TokenPair is the credential pair issued on a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService implements registration, credential verification, and
// token issuance. The repository owns the admission-policy atomicity;
// this service owns hashing and the token lifecycle.
type AuthService struct {
	repo   UserRepository
	hasher auth.PasswordHasher
	tokens *auth.TokenManager
}

func NewAuthService(repo UserRepository, hasher auth.PasswordHasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates the single account this installation admits. It
// returns store.ErrUserLimitReached when the slot is taken and
// store.ErrEmailTaken on a duplicate email. No token is issued; login
// is a separate step.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateSingle(ctx, types.User{
		Name:         name,
		Email:        email,
		Role:         defaultUserRole,
		PasswordHash: hashed,
	})
}

// Login verifies the email/password pair and issues an access and a
// refresh token for the resolved account. Both failure modes collapse
// into ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh validates a refresh token and issues a new access token for
// its subject. The refresh token itself is never re-issued or rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	return s.tokens.IssueAccessToken(user)
}
