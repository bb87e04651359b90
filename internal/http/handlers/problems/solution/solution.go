// Package solution реализует HTTP-обработчик решения и подсказки задачи.
package solution

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/detail"
	"github.com/magabrotheeeer/examprep/internal/http/response"
)

// Response - решение и подсказка.
type Response struct {
	Solution string `json:"solution"`
	Hint     string `json:"hint"`
}

// Handler отдаёт решение задачи.
type Handler struct {
	log     *slog.Logger
	catalog detail.Catalog
}

// New создаёт Handler.
func New(log *slog.Logger, c detail.Catalog) *Handler {
	return &Handler{log: log, catalog: c}
}

// ServeHTTP godoc
// @Summary Решение задачи
// @Tags Problems
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор задачи"
// @Success 200 {object} response.Response{data=Response}
// @Failure 403 {object} response.ErrorResponse "Предмет не входит в тариф"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Router /problems/{id}/solution [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		slog.String("op", "handlers.problems.solution"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := detail.Resolve(w, r, log, h.catalog)
	if !ok {
		return
	}
	render.JSON(w, r, response.StatusOKWithData(Response{Solution: p.Solution, Hint: p.Hint}))
}
