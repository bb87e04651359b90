package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/services/auth"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	args := m.Called(ctx, token)
	c, _ := args.Get(0).(*jwt.Claims)
	return c, args.Error(1)
}

type UserProviderMock struct {
	mock.Mock
}

func (m *UserProviderMock) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	claims := &jwt.Claims{Email: "a@example.com"}
	claims.Subject = "u1"

	tests := []struct {
		name       string
		header     string
		setup      func(m *ValidatorMock)
		wantStatus int
		wantCalled bool
	}{
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "good").Return(claims, nil)
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{
			name:   "revoked token",
			header: "Bearer revoked",
			setup: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "revoked").Return(nil, auth.ErrUnauthorized)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "deny-list unavailable",
			header: "Bearer good",
			setup: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "good").Return(nil, errors.New("redis down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(ValidatorMock)
			if tt.setup != nil {
				tt.setup(v)
			}
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.UserIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "u1", id)
				assert.Equal(t, "a@example.com", middlewarectx.EmailFrom(r.Context()))
				c, ok := middlewarectx.ClaimsFrom(r.Context())
				assert.True(t, ok)
				assert.Same(t, claims, c)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(v, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestActiveEntitlementMiddleware(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name       string
		user       *models.User
		err        error
		noIdentity bool
		wantStatus int
		wantTier   string
	}{
		{
			name:       "active starter",
			user:       &models.User{ID: "u1", Entitlement: models.Entitlement{Tier: "starter", SubscriptionStatus: models.StatusActive, CurrentPeriodEnd: &future}},
			wantStatus: http.StatusOK,
			wantTier:   "starter",
		},
		{
			name:       "expired",
			user:       &models.User{ID: "u1", Entitlement: models.Entitlement{Tier: "starter", SubscriptionStatus: models.StatusExpired, CurrentPeriodEnd: &past}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "never purchased",
			user:       &models.User{ID: "u1", Entitlement: models.Entitlement{Tier: "none", SubscriptionStatus: models.StatusNone}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "tutoring only",
			user:       &models.User{ID: "u1", Entitlement: models.Entitlement{Tier: "tutoring", SubscriptionStatus: models.StatusNone}},
			wantStatus: http.StatusForbidden,
		},
		{name: "user gone", err: auth.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "store failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
		{name: "no identity", noIdentity: true, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserProviderMock)
			users.On("CurrentUser", mock.Anything, "u1").Return(tt.user, tt.err)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				plan, ok := middlewarectx.PlanFrom(r.Context())
				require.True(t, ok)
				assert.Equal(t, tt.wantTier, string(plan.ID))
				u, ok := middlewarectx.UserFrom(r.Context())
				require.True(t, ok)
				assert.Equal(t, "u1", u.ID)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if !tt.noIdentity {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, "u1"))
			}
			rr := httptest.NewRecorder()
			middlewarectx.ActiveEntitlementMiddleware(users, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewIPRateLimiter(1, 2)
	handler := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111"), "other clients keep their own budget")
}
