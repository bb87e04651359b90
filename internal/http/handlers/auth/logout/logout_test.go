package logout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Logout(ctx context.Context, claims *jwt.Claims) error {
	return m.Called(ctx, claims).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogoutHandler(t *testing.T) {
	claims := &jwt.Claims{Email: "ann@example.com"}
	claims.Subject = "u1"
	claims.ID = "tok-1"

	tests := []struct {
		name       string
		claims     *jwt.Claims
		serviceErr error
		wantCode   int
	}{
		{name: "revoked", claims: claims, wantCode: http.StatusOK},
		{name: "cache down", claims: claims, serviceErr: errors.New("redis down"), wantCode: http.StatusInternalServerError},
		{name: "no claims", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.claims != nil {
				svc.On("Logout", mock.Anything, tt.claims).Return(tt.serviceErr).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Claims, tt.claims))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "OK", got["status"])
			} else {
				assert.Equal(t, "Error", got["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}
