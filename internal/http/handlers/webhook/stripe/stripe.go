// Package stripe реализует HTTP-обработчик webhook платёжного провайдера.
//
// Тело читается целиком без разбора: подпись проверяется по исходным байтам.
package stripe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/services/reconcile"
)

// MaxBodyBytes ограничивает размер тела события.
const MaxBodyBytes = 64 << 10

// SignatureHeader - заголовок с подписью события.
const SignatureHeader = "Stripe-Signature"

// Service применяет событие к состоянию доступа.
type Service interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (reconcile.Outcome, error)
}

// Handler принимает события провайдера.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Проверяет подпись и применяет событие. Повторная доставка подтверждается без изменений.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} map[string]bool "received"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripe"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		log.Warn("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	outcome, err := h.service.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, reconcile.ErrSignature):
		log.Warn("webhook signature rejected")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	case errors.Is(err, reconcile.ErrPayload), errors.Is(err, reconcile.ErrUnknownUser):
		log.Warn("webhook payload rejected", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	case err != nil:
		log.Error("webhook processing failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("webhook processing failed"))
		return
	}

	log.Info("webhook handled", slog.String("outcome", string(outcome)))
	render.JSON(w, r, map[string]bool{"received": true})
}
