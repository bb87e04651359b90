// Package analysis реализует HTTP-обработчик анализа прогресса.
//
// Анализ доступен только тарифам, в которые он входит; данные для анализатора
// собираются из каталога и отправок пользователя.
package analysis

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
	analysissvc "github.com/magabrotheeeer/examprep/internal/services/analysis"
)

// Catalog отдаёт весь каталог.
type Catalog interface {
	All() []models.Problem
}

// Submissions отдаёт отправки пользователя.
type Submissions interface {
	Submissions(ctx context.Context, userID string) ([]models.Submission, error)
}

// Handler строит анализ для текущего пользователя.
type Handler struct {
	log      *slog.Logger
	catalog  Catalog
	subs     Submissions
	analyzer analysissvc.Analyzer
}

// New создаёт Handler.
func New(log *slog.Logger, c Catalog, subs Submissions, analyzer analysissvc.Analyzer) *Handler {
	return &Handler{log: log, catalog: c, subs: subs, analyzer: analyzer}
}

// ServeHTTP godoc
// @Summary Анализ прогресса
// @Description Слабые темы, рекомендованные задачи, план на четыре недели и выводы.
// @Tags Analysis
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Analysis}
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 403 {object} response.ErrorResponse "Анализ не входит в тариф"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /analysis [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analysis"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	plan, ok := middlewarectx.PlanFrom(r.Context())
	if !ok || !plan.Analysis {
		log.Info("analysis not included in plan", slog.String("user_id", userID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("analysis is not included in your plan"))
		return
	}

	subs, err := h.subs.Submissions(r.Context(), userID)
	if err != nil {
		log.Error("failed to load submissions", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), analysissvc.Input{
		Problems:    h.catalog.All(),
		Submissions: subs,
	})
	if err != nil {
		log.Error("analysis failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
