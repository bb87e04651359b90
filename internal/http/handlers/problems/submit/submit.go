// Package submit реализует HTTP-обработчик отметки о решении задачи.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/examprep/internal/http/handlers/problems/detail"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/progress"
)

// Request - отметка пользователя. Solved задаётся самим пользователем,
// Answer сохраняется только в логе.
type Request struct {
	Solved bool   `json:"solved"`
	Answer string `json:"answer" validate:"max=2000"`
}

// Service сохраняет отметку.
type Service interface {
	Submit(ctx context.Context, userID, problemID string, solved bool) (progress.SubmitResult, error)
}

// Handler обрабатывает отправки.
type Handler struct {
	log      *slog.Logger
	catalog  detail.Catalog
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, c detail.Catalog, service Service) *Handler {
	return &Handler{
		log:      log,
		catalog:  c,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отметить решение задачи
// @Tags Problems
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор задачи"
// @Param request body Request true "Отметка о решении"
// @Success 200 {object} response.Response{data=progress.SubmitResult}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Предмет не входит в тариф"
// @Failure 404 {object} response.ErrorResponse "Задача не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /problems/{id}/submit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.problems.submit"

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

	p, ok := detail.Resolve(w, r, log, h.catalog)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	res, err := h.service.Submit(r.Context(), userID, p.ID, req.Solved)
	if errors.Is(err, progress.ErrProblemNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("problem not found"))
		return
	}
	if err != nil {
		log.Error("failed to store submission", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("submission accepted",
		slog.String("user_id", userID),
		slog.String("problem_id", p.ID),
		slog.Bool("solved", req.Solved),
		slog.Int("answer_len", len(req.Answer)),
	)
	render.JSON(w, r, response.StatusOKWithData(res))
}
