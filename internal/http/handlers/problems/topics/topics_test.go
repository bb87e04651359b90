package topics

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTopics []string

func (s staticTopics) Topics() []string { return s }

func TestTopicsHandler(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), staticTopics{"Algebra", "Calculus"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/problems/topics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Algebra", "Calculus"}, got.Data)
}
