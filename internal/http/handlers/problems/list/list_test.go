package list

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
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

type fakeCatalog struct {
	problems []models.Problem
	err      error
	lastF    catalog.Filter
}

func (c *fakeCatalog) Filter(f catalog.Filter) []models.Problem {
	c.lastF = f
	var out []models.Problem
	for _, p := range c.problems {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (c *fakeCatalog) Len() int   { return len(c.problems) }
func (c *fakeCatalog) Err() error { return c.err }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProblems() []models.Problem {
	return []models.Problem{
		{ID: "m1", Title: "Derivatives", Subject: models.SubjectMath, Difficulty: models.DifficultyEasy, Topics: []string{"Calculus"}, Statement: "Find f'(x)", Solution: "2x"},
		{ID: "p1", Title: "Projectile", Subject: models.SubjectPhysics, Difficulty: models.DifficultyMedium, Topics: []string{"Kinematics"}, Statement: "A ball is thrown"},
		{ID: "a1", Title: "Lift", Subject: models.SubjectIntroAE, Difficulty: models.DifficultyHard, Topics: []string{"Aerodynamics"}, Statement: "Compute lift"},
	}
}

func mustPlan(t *testing.T, id tier.ID) tier.Plan {
	t.Helper()
	p, ok := tier.Lookup(id)
	require.True(t, ok)
	return p
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		plan     tier.ID
		noPlan   bool
		catErr   error
		empty    bool
		wantCode int
		wantIDs  []string
	}{
		{name: "starter hides introAE", plan: tier.Starter, wantCode: http.StatusOK, wantIDs: []string{"m1", "p1"}},
		{name: "enhanced sees all", plan: tier.Enhanced, wantCode: http.StatusOK, wantIDs: []string{"m1", "p1", "a1"}},
		{name: "subject filter", query: "?subject=physics", plan: tier.Complete, wantCode: http.StatusOK, wantIDs: []string{"p1"}},
		{name: "difficulty and topic", query: "?difficulty=hard&topic=Aerodynamics", plan: tier.Complete, wantCode: http.StatusOK, wantIDs: []string{"a1"}},
		{name: "case-insensitive search", query: "?search=BALL", plan: tier.Complete, wantCode: http.StatusOK, wantIDs: []string{"p1"}},
		{name: "explicit all", query: "?subject=all&difficulty=all&topic=all", plan: tier.Complete, wantCode: http.StatusOK, wantIDs: []string{"m1", "p1", "a1"}},
		{name: "nothing matches", query: "?search=zzz", plan: tier.Complete, wantCode: http.StatusOK, wantIDs: []string{}},
		{name: "unknown subject", query: "?subject=chemistry", plan: tier.Complete, wantCode: http.StatusUnprocessableEntity},
		{name: "catalog failed to load", plan: tier.Complete, empty: true, catErr: errors.New("boom"), wantCode: http.StatusServiceUnavailable},
		{name: "no plan in context", noPlan: true, wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCatalog{problems: testProblems(), err: tt.catErr}
			if tt.empty {
				c.problems = nil
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/problems"+tt.query, nil)
			if !tt.noPlan {
				req = req.WithContext(middlewarectx.WithPlan(context.Background(), mustPlan(t, tt.plan)))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), c).ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var got struct {
				Data []map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			ids := make([]string, 0, len(got.Data))
			for _, p := range got.Data {
				ids = append(ids, p["id"].(string))
				assert.NotContains(t, p, "solution")
				assert.NotContains(t, p, "hint")
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
