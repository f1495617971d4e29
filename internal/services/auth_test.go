package services

import (
	"context"
	"testing"
	"time"

	"github.com/linklytics/apiserver/internal/auth"
	"github.com/linklytics/apiserver/internal/store"
	"github.com/linklytics/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo enforces the single-account admission policy in memory,
// mirroring the persistent repository's behavior.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) CreateSingle(_ context.Context, user types.User) (types.User, error) {
	if len(r.users) > 0 {
		return types.User{}, store.ErrUserLimitReached
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrEmailTaken
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

// fakeHasher avoids bcrypt cost in service tests.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Verify(password, hash string) bool { return "hashed:"+password == hash }

func newAuthService(repo UserRepository) *AuthService {
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(repo, fakeHasher{}, tokens)
}

func TestRegisterCreatesFirstUser(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, "hashed:password1", user.PasswordHash)
}

func TestRegisterRefusesSecondUser(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Intruder", "other@example.com", "password2")
	assert.ErrorIs(t, err, store.ErrUserLimitReached)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "owner@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	t.Parallel()

	svc := newAuthService(newFakeUserRepo())

	_, err := svc.Login(context.Background(), "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "owner@example.com", "password1")
	require.NoError(t, err)

	accessToken, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
}

func TestRefreshSameTokenTwice(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "owner@example.com", "password1")
	require.NoError(t, err)

	// Refresh tokens are not rotated; the same cookie keeps working
	// until it expires, and every exchange mints a distinct access
	// token even within the same second.
	first, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	second, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}

func TestRefreshRejectsAccessTokenSubjectGone(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), "Owner", "owner@example.com", "password1")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "owner@example.com", "password1")
	require.NoError(t, err)

	delete(repo.users, 1)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	t.Parallel()

	svc := newAuthService(newFakeUserRepo())

	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}
