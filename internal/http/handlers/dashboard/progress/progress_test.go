package progress

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
	"github.com/magabrotheeeer/examprep/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Progress(ctx context.Context, userID string) (models.Progress, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Progress), args.Error(1)
}

func TestProgressHandler(t *testing.T) {
	snapshot := models.Progress{
		TotalProblems:  10,
		SolvedProblems: 3,
		Accuracy:       75,
		TopicAccuracy:  []models.TopicAccuracy{{Topic: "Calculus", Correct: 3, Total: 4, Accuracy: 75}},
	}

	tests := []struct {
		name     string
		userID   string
		err      error
		wantCode int
	}{
		{name: "ok", userID: "u1", wantCode: http.StatusOK},
		{name: "storage failure", userID: "u1", err: errors.New("db down"), wantCode: http.StatusInternalServerError},
		{name: "no identity", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.userID != "" {
				svc.On("Progress", mock.Anything, tt.userID).Return(snapshot, tt.err).Once()
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/progress", nil)
			if tt.userID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			rec := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var got struct {
					Data models.Progress `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, snapshot, got.Data)
			}
			svc.AssertExpectations(t)
		})
	}
}
