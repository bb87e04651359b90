// Package create реализует HTTP-обработчик создания платёжной сессии.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/checkout"
)

// Request - выбранный тариф и цена.
type Request struct {
	PriceID string `json:"priceId" validate:"required,max=255"`
	Tier    string `json:"tier" validate:"required,max=32"`
}

// Response - адрес страницы оплаты.
type Response struct {
	URL string `json:"url"`
}

// Service создаёт сессию оплаты.
type Service interface {
	CreateSession(ctx context.Context, id checkout.Identity, tierID, priceID string) (string, error)
}

// Handler обрабатывает создание платёжной сессии.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платёжную сессию
// @Description Возвращает адрес страницы оплаты выбранного тарифа.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Тариф и цена"
// @Success 200 {object} response.Response{data=Response}
// @Failure 400 {object} response.ErrorResponse "Некорректный тариф или цена, либо уже действует старший тариф"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /checkout/create-session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _ := middlewarectx.UserIDFrom(r.Context())
	id := checkout.Identity{UserID: userID, Email: middlewarectx.EmailFrom(r.Context())}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	url, err := h.service.CreateSession(r.Context(), id, req.Tier, req.PriceID)
	switch {
	case errors.Is(err, checkout.ErrUnauthorized):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	case errors.Is(err, checkout.ErrHigherTierActive):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("a higher tier is already active"))
		return
	case errors.Is(err, checkout.ErrInvalidTier):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid tier"))
		return
	case errors.Is(err, checkout.ErrInvalidInput), errors.Is(err, checkout.ErrPriceMismatch):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid price"))
		return
	case err != nil:
		log.Error("failed to create checkout session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create checkout session"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{URL: url}))
}
