// Package auth отвечает за регистрацию, вход, выход и проверку сессий.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/magabrotheeeer/examprep/internal/cache"
	"github.com/magabrotheeeer/examprep/internal/entitlement"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/lib/password"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/storage"
)

// MinPasswordLength - минимальная длина пароля.
const MinPasswordLength = 8

// Ошибки сервиса.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Cache хранит снимки пользователей и отозванные токены.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// Session - результат входа или регистрации.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Service реализует сессии пользователей.
type Service struct {
	users    UserRepository
	cache    Cache
	jwtMaker jwt.Maker
	userTTL  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewService создаёт Service. userTTL - время жизни снимка пользователя в кэше.
func NewService(users UserRepository, cache Cache, jwtMaker jwt.Maker, userTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		cache:    cache,
		jwtMaker: jwtMaker,
		userTTL:  userTTL,
		log:      log,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя без доступа и сразу открывает сессию.
func (s *Service) Register(ctx context.Context, email, rawPassword, name string) (*Session, error) {
	const op = "auth.Register"

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil || name == "" || len(rawPassword) < MinPasswordLength {
		return nil, ErrInvalidInput
	}
	hashed, err := password.GetHash(rawPassword)
	if errors.Is(err, password.ErrTooLong) {
		return nil, ErrInvalidInput
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{Email: email, Name: name, PasswordHash: hashed})
	if errors.Is(err, storage.ErrUserExists) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.openSession(user)
}

// Login проверяет пароль и открывает сессию. Неизвестный e-mail и неверный
// пароль неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(user)
}

func (s *Service) openSession(user *models.User) (*Session, error) {
	token, claims, err := s.jwtMaker.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("auth.openSession: %w", err)
	}
	s.withEffectiveStatus(user)
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// ValidateToken проверяет подпись, срок и отзыв токена.
func (s *Service) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	const op = "auth.ValidateToken"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	revoked, err := s.cache.Exists(ctx, cache.RevokedTokenKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Logout отзывает токен до окончания его срока действия.
func (s *Service) Logout(ctx context.Context, claims *jwt.Claims) error {
	const op = "auth.Logout"

	ttl := claims.TTL(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, cache.RevokedTokenKey(claims.ID), true, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CurrentUser возвращает пользователя с актуальным статусом доступа. Снимок
// берётся из кэша, а при промахе читается из базы и кэшируется.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "auth.CurrentUser"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	var cached models.User
	found, err := s.cache.Get(ctx, cache.UserKey(userID), &cached)
	if err != nil {
		log.Warn("user cache read failed", sl.Err(err))
	}
	if found {
		s.withEffectiveStatus(&cached)
		return &cached, nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.storeSnapshot(ctx, log, userID, user)
	s.withEffectiveStatus(user)
	return user, nil
}

// storeSnapshot кеширует прочитанного пользователя. Если доступ менялся в
// пределах cache.UserChangedTTL, строка могла быть прочитана до изменения, и
// снимок сразу удаляется.
func (s *Service) storeSnapshot(ctx context.Context, log *slog.Logger, userID string, user *models.User) {
	key := cache.UserKey(userID)
	if err := s.cache.Set(ctx, key, user, s.userTTL); err != nil {
		log.Warn("user cache write failed", sl.Err(err))
		return
	}
	changed, err := s.cache.Exists(ctx, cache.UserChangedKey(userID))
	if err != nil || changed {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			log.Warn("failed to drop possibly stale user snapshot", sl.Err(err))
		}
	}
}

// withEffectiveStatus подставляет expired для истёкшего активного доступа.
func (s *Service) withEffectiveStatus(u *models.User) {
	u.Entitlement.SubscriptionStatus = entitlement.EffectiveStatus(u.Entitlement, s.now())
}
