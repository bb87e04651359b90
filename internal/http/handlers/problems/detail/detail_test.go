package detail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

type CatalogMock struct {
	mock.Mock
}

func (m *CatalogMock) Get(id string) (models.Problem, error) {
	args := m.Called(id)
	return args.Get(0).(models.Problem), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetailHandler(t *testing.T) {
	aero := models.Problem{ID: "a1", Title: "Lift", Subject: models.SubjectIntroAE, Solution: "L = qSC", Hint: "use q"}
	math := models.Problem{ID: "m1", Title: "Limits", Subject: models.SubjectMath, Solution: "1", Hint: "sin x / x"}

	tests := []struct {
		name     string
		id       string
		problem  models.Problem
		err      error
		plan     tier.ID
		wantCode int
	}{
		{name: "covered subject", id: "m1", problem: math, plan: tier.Starter, wantCode: http.StatusOK},
		{name: "subject outside plan", id: "a1", problem: aero, plan: tier.Starter, wantCode: http.StatusForbidden},
		{name: "enhanced covers introAE", id: "a1", problem: aero, plan: tier.Enhanced, wantCode: http.StatusOK},
		{name: "unknown id", id: "zz", err: catalog.ErrNotFound, plan: tier.Complete, wantCode: http.StatusNotFound},
		{name: "catalog failure", id: "m1", err: errors.New("boom"), plan: tier.Complete, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := new(CatalogMock)
			c.On("Get", tt.id).Return(tt.problem, tt.err).Once()

			plan, ok := tier.Lookup(tt.plan)
			require.True(t, ok)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithPlan(ctx, plan)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/problems/"+tt.id, nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			New(newNoopLogger(), c).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var got struct {
					Data map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, tt.id, got.Data["id"])
				assert.NotContains(t, got.Data, "solution")
			}
			c.AssertExpectations(t)
		})
	}
}
