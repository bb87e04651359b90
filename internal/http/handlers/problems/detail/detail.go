// Package detail реализует HTTP-обработчик карточки задачи.
package detail

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Catalog ищет задачу по идентификатору.
type Catalog interface {
	Get(id string) (models.Problem, error)
}

// Handler отдаёт задачу без решения и подсказки.
type Handler struct {
	log     *slog.Logger
	catalog Catalog
}

// New создаёт Handler.
func New(log *slog.Logger, c Catalog) *Handler {
	return &Handler{log: log, catalog: c}
}

// ServeHTTP godoc
// @Summary Задача
// @Tags Problems
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор задачи"
// @Success 200 {object} response.Response{data=models.ProblemSummary}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 403 {object} response.ErrorResponse "Предмет не входит в тариф"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Router /problems/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.problems.detail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := Resolve(w, r, log, h.catalog)
	if !ok {
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p.Summary()))
}

// Resolve находит задачу из параметра пути id и проверяет, что её предмет
// открыт тарифом из контекста. При ошибке ответ уже записан в w.
func Resolve(w http.ResponseWriter, r *http.Request, log *slog.Logger, c Catalog) (models.Problem, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing problem id"))
		return models.Problem{}, false
	}

	p, err := c.Get(id)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Info("problem not found", slog.String("problem_id", id))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("problem not found"))
		return models.Problem{}, false
	}
	if err != nil {
		log.Error("failed to get problem", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return models.Problem{}, false
	}

	plan, ok := middlewarectx.PlanFrom(r.Context())
	if !ok || !plan.AllowsSubject(p.Subject) {
		log.Info("subject not covered by plan",
			slog.String("problem_id", id),
			slog.String("subject", string(p.Subject)),
		)
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("problem is not included in your plan"))
		return models.Problem{}, false
	}
	return p, true
}
