// Package list реализует HTTP-обработчик прайс-листа тарифов.
package list

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/examprep/internal/http/response"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

// Handler отдаёт таблицу тарифов.
type Handler struct {
	log   *slog.Logger
	plans func() []tier.Plan
}

// New создаёт Handler поверх таблицы тарифов.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log, plans: tier.Plans}
}

// ServeHTTP godoc
// @Summary Тарифы
// @Description Возвращает все тарифы с ценой, сроком и списком возможностей.
// @Tags Tiers
// @Produce  json
// @Success 200 {object} response.Response{data=[]tier.Plan}
// @Router /tiers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tiers.list"

	plans := h.plans()
	h.log.Debug("tiers listed",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("count", len(plans)),
	)
	render.JSON(w, r, response.StatusOKWithData(plans))
}
