// Package list реализует HTTP-обработчик списка задач каталога.
//
// Параметры subject, difficulty, topic и search накладываются на фильтр по
// умолчанию и объединяются по И. Из результата убираются предметы, которые не
// открывает действующий тариф пользователя.
package list

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Catalog - часть каталога, нужная обработчику.
type Catalog interface {
	Filter(f catalog.Filter) []models.Problem
	Len() int
	Err() error
}

// Query - параметры строки запроса.
type Query struct {
	Subject    string `validate:"omitempty,oneof=all math physics introAE"`
	Difficulty string `validate:"omitempty,oneof=all easy medium hard"`
	Topic      string `validate:"max=100"`
	Search     string `validate:"max=200"`
}

// Handler обрабатывает запросы списка задач.
type Handler struct {
	log      *slog.Logger
	catalog  Catalog
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, c Catalog) *Handler {
	return &Handler{
		log:      log,
		catalog:  c,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Список задач
// @Description Возвращает задачи каталога без решений. Предметы вне тарифа не показываются.
// @Tags Problems
// @Produce  json
// @Security BearerAuth
// @Param subject query string false "all, math, physics, introAE"
// @Param difficulty query string false "all, easy, medium, hard"
// @Param topic query string false "тема или all"
// @Param search query string false "подстрока заголовка или условия"
// @Success 200 {object} response.Response{data=[]models.ProblemSummary}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 403 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 422 {object} response.ErrorResponse "Некорректный фильтр"
// @Failure 503 {object} response.ErrorResponse "Каталог недоступен"
// @Router /problems [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.problems.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plan, ok := middlewarectx.PlanFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("active subscription required"))
		return
	}

	values := r.URL.Query()
	q := Query{
		Subject:    values.Get("subject"),
		Difficulty: values.Get("difficulty"),
		Topic:      values.Get("topic"),
		Search:     values.Get("search"),
	}
	if err := h.validate.Struct(q); err != nil {
		log.Info("invalid filter", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid filter"))
		return
	}

	if h.catalog.Len() == 0 && h.catalog.Err() != nil {
		log.Error("catalog is not loaded", sl.Err(h.catalog.Err()))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("catalog unavailable"))
		return
	}

	f := catalog.DefaultFilter().Apply(patchFrom(q))
	problems := h.catalog.Filter(f)

	out := make([]models.ProblemSummary, 0, len(problems))
	for _, p := range problems {
		if plan.AllowsSubject(p.Subject) {
			out = append(out, p.Summary())
		}
	}

	log.Debug("problems listed", slog.Any("filter", f), slog.Int("count", len(out)))
	render.JSON(w, r, response.StatusOKWithData(out))
}

func patchFrom(q Query) catalog.FilterPatch {
	var patch catalog.FilterPatch
	if q.Subject != "" {
		patch.Subject = &q.Subject
	}
	if q.Difficulty != "" {
		patch.Difficulty = &q.Difficulty
	}
	if q.Topic != "" {
		patch.Topic = &q.Topic
	}
	if q.Search != "" {
		patch.Search = &q.Search
	}
	return patch
}
