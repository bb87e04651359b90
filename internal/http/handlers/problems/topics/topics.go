// Package topics реализует HTTP-обработчик списка тем каталога.
package topics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
)

// Catalog возвращает отсортированные темы.
type Catalog interface {
	Topics() []string
}

// Handler отдаёт темы каталога.
type Handler struct {
	log     *slog.Logger
	catalog Catalog
}

// New создаёт Handler.
func New(log *slog.Logger, c Catalog) *Handler {
	return &Handler{log: log, catalog: c}
}

// ServeHTTP godoc
// @Summary Темы задач
// @Tags Problems
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]string}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 403 {object} response.ErrorResponse "Нет активной подписки"
// @Router /problems/topics [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics := h.catalog.Topics()
	h.log.Debug("topics listed",
		slog.String("op", "handlers.problems.topics"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("count", len(topics)),
	)
	render.JSON(w, r, response.StatusOKWithData(topics))
}
