package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/cache"
	"github.com/magabrotheeeer/examprep/internal/config"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/lib/password"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/auth"
	"github.com/magabrotheeeer/examprep/internal/storage"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для Cache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newService(repo *UserRepoMock, c *CacheMock) (*auth.Service, *jwt.MakerImpl) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return auth.NewService(repo, c, maker, 5*time.Minute, newNoopLogger()), maker
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		userName   string
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name:     "successful registration",
			email:    "  Alice@Example.com ",
			password: "password123",
			userName: "Alice",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "alice@example.com" && u.Name == "Alice" &&
						password.CompareHash(u.PasswordHash, "password123") == nil
				})).Return(&models.User{ID: "u1", Email: "alice@example.com", Name: "Alice"}, nil).Once()
			},
		},
		{
			name:     "duplicate email",
			email:    "alice@example.com",
			password: "password123",
			userName: "Alice",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, storage.ErrUserExists).Once()
			},
			wantErr: auth.ErrUserExists,
		},
		{name: "bad email", email: "not-an-email", password: "password123", userName: "A", wantErr: auth.ErrInvalidInput},
		{name: "short password", email: "a@example.com", password: "short", userName: "A", wantErr: auth.ErrInvalidInput},
		{name: "empty name", email: "a@example.com", password: "password123", userName: "  ", wantErr: auth.ErrInvalidInput},
		{
			name:     "password too long for bcrypt",
			email:    "a@example.com",
			password: string(make([]byte, password.MaxLength+1)),
			userName: "A",
			wantErr:  auth.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			if tt.setupMocks != nil {
				tt.setupMocks(repo)
			}
			svc, maker := newService(repo, new(CacheMock))

			sess, err := svc.Register(context.Background(), tt.email, tt.password, tt.userName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusNone, sess.User.Entitlement.SubscriptionStatus)
			claims, err := maker.ParseToken(sess.Token)
			require.NoError(t, err)
			assert.Equal(t, "u1", claims.UserID())
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("password123")
	require.NoError(t, err)
	stored := &models.User{ID: "u1", Email: "alice@example.com", Name: "Alice", PasswordHash: hash}

	tests := []struct {
		name     string
		password string
		repoUser *models.User
		repoErr  error
		wantErr  error
	}{
		{name: "success", password: "password123", repoUser: stored},
		{name: "wrong password", password: "nope", repoUser: stored, wantErr: auth.ErrInvalidCredentials},
		{name: "unknown email", password: "password123", repoErr: storage.ErrUserNotFound, wantErr: auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			repo.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(tt.repoUser, tt.repoErr)
			svc, _ := newService(repo, new(CacheMock))

			sess, err := svc.Login(context.Background(), "Alice@example.com", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, sess.Token)
			assert.Equal(t, "u1", sess.User.ID)
		})
	}

	t.Run("repository failure", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
		svc, _ := newService(repo, new(CacheMock))

		_, err := svc.Login(context.Background(), "alice@example.com", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_ValidateTokenAndLogout(t *testing.T) {
	c := new(CacheMock)
	svc, maker := newService(new(UserRepoMock), c)
	token, claims, err := maker.GenerateToken("u1", "alice@example.com", "Alice")
	require.NoError(t, err)
	revokedKey := cache.RevokedTokenKey(claims.ID)

	c.On("Exists", mock.Anything, revokedKey).Return(false, nil).Once()
	got, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID())

	c.On("Set", mock.Anything, revokedKey, true, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(nil).Once()
	require.NoError(t, svc.Logout(context.Background(), got))

	c.On("Exists", mock.Anything, revokedKey).Return(true, nil).Once()
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = svc.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	c.AssertExpectations(t)
}

func TestService_CurrentUser(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	t.Run("cache miss reads repository and caches", func(t *testing.T) {
		repo := new(UserRepoMock)
		c := new(CacheMock)
		user := &models.User{ID: "u1", Entitlement: models.Entitlement{
			Tier: "starter", SubscriptionStatus: models.StatusActive, CurrentPeriodEnd: &future,
		}}
		c.On("Get", mock.Anything, cache.UserKey("u1"), mock.Anything).Return(false, nil)
		repo.On("GetUser", mock.Anything, "u1").Return(user, nil)
		c.On("Set", mock.Anything, cache.UserKey("u1"), user, 5*time.Minute).Return(nil)
		c.On("Exists", mock.Anything, cache.UserChangedKey("u1")).Return(false, nil)
		svc, _ := newService(repo, c)

		got, err := svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Entitlement.SubscriptionStatus)
		c.AssertExpectations(t)
	})

	t.Run("expired entitlement is reported as expired", func(t *testing.T) {
		repo := new(UserRepoMock)
		c := new(CacheMock)
		user := &models.User{ID: "u1", Entitlement: models.Entitlement{
			Tier: "starter", SubscriptionStatus: models.StatusActive, CurrentPeriodEnd: &past,
		}}
		c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		repo.On("GetUser", mock.Anything, "u1").Return(user, nil)
		c.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		c.On("Exists", mock.Anything, cache.UserChangedKey("u1")).Return(false, nil)
		svc, _ := newService(repo, c)

		got, err := svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, got.Entitlement.SubscriptionStatus)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := new(UserRepoMock)
		c := new(CacheMock)
		c.On("Get", mock.Anything, cache.UserKey("u1"), mock.Anything).
			Run(func(args mock.Arguments) {
				u := args.Get(2).(*models.User)
				u.ID = "u1"
				u.Email = "cached@example.com"
			}).Return(true, nil)
		svc, _ := newService(repo, c)

		got, err := svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "cached@example.com", got.Email)
		repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("deleted user", func(t *testing.T) {
		repo := new(UserRepoMock)
		c := new(CacheMock)
		c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		repo.On("GetUser", mock.Anything, "gone").Return(nil, storage.ErrUserNotFound)
		svc, _ := newService(repo, c)

		_, err := svc.CurrentUser(context.Background(), "gone")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestService_CurrentUser_ConcurrentEntitlementChange(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisCache, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })

	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	stale := &models.User{ID: "u1", Entitlement: models.Entitlement{SubscriptionStatus: models.StatusNone}}

	t.Run("snapshot read before the change is not kept", func(t *testing.T) {
		mr.FlushAll()
		repo := new(UserRepoMock)
		// Оплата фиксируется между чтением строки и записью снимка.
		repo.On("GetUser", mock.Anything, "u1").Run(func(mock.Arguments) {
			require.NoError(t, redisCache.InvalidateUser(context.Background(), "u1"))
		}).Return(stale, nil).Once()
		svc := auth.NewService(repo, redisCache, maker, 5*time.Minute, newNoopLogger())

		_, err := svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.False(t, mr.Exists(cache.UserKey("u1")))
	})

	t.Run("snapshot is cached when nothing changed", func(t *testing.T) {
		mr.FlushAll()
		repo := new(UserRepoMock)
		repo.On("GetUser", mock.Anything, "u1").Return(stale, nil).Once()
		svc := auth.NewService(repo, redisCache, maker, 5*time.Minute, newNoopLogger())

		_, err := svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.True(t, mr.Exists(cache.UserKey("u1")))

		_, err = svc.CurrentUser(context.Background(), "u1")
		require.NoError(t, err)
		repo.AssertNumberOfCalls(t, "GetUser", 1)
	})
}
