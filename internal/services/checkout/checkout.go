// Package checkout создаёт платёжные сессии для выбранного тарифа.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/examprep/internal/entitlement"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/paymentprovider"
	"github.com/magabrotheeeer/examprep/internal/services/auth"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

// Ошибки сервиса.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidTier   = errors.New("invalid tier")
	ErrInvalidInput  = errors.New("invalid input")
	ErrPriceMismatch = errors.New("price does not match tier")
	ErrUpstream      = errors.New("failed to create checkout session")
	// ErrHigherTierActive оборачивает ErrInvalidTier.
	ErrHigherTierActive = fmt.Errorf("%w: a higher tier is already active", ErrInvalidTier)
)

// Provider создаёт сессию у платёжного провайдера.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutParams) (*paymentprovider.Session, error)
}

// Users отдаёт текущее состояние доступа покупателя.
type Users interface {
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// Identity - аутентифицированный покупатель.
type Identity struct {
	UserID string
	Email  string
}

// Service создаёт checkout-сессии. Сессия не сохраняется локально: её
// метаданные и есть запись о покупке до прихода webhook.
type Service struct {
	provider Provider
	users    Users
	prices   map[string]string
	appURL   string
	log      *slog.Logger
	now      func() time.Time
}

// NewService создаёт Service. prices - настроенные идентификаторы цен по
// тарифам; для тарифа без настроенной цены принимается любой priceID.
func NewService(provider Provider, users Users, prices map[string]string, appURL string, log *slog.Logger) *Service {
	return &Service{
		provider: provider,
		users:    users,
		prices:   prices,
		appURL:   strings.TrimRight(appURL, "/"),
		log:      log,
		now:      time.Now,
	}
}

// CreateSession проверяет запрос и возвращает адрес страницы оплаты.
func (s *Service) CreateSession(ctx context.Context, id Identity, tierID, priceID string) (string, error) {
	const op = "checkout.CreateSession"
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)

	if id.UserID == "" || id.Email == "" {
		return "", ErrUnauthorized
	}
	parsed, err := tier.Parse(tierID)
	if err != nil {
		return "", ErrInvalidTier
	}
	plan, _ := tier.Lookup(parsed)
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return "", ErrInvalidInput
	}
	if want, ok := s.prices[string(plan.ID)]; ok && want != priceID {
		log.Warn("price does not match tier",
			slog.String("tier", string(plan.ID)),
			slog.String("price_id", priceID),
		)
		return "", ErrPriceMismatch
	}
	if !plan.AddOn {
		if err := s.checkNotDowngrade(ctx, id.UserID, plan); err != nil {
			if errors.Is(err, ErrHigherTierActive) {
				log.Info("purchase of a lower tier rejected",
					slog.String("user_id", id.UserID),
					slog.String("tier", string(plan.ID)),
				)
			}
			return "", err
		}
	}

	params := paymentprovider.CheckoutParams{
		PriceID:           priceID,
		CustomerEmail:     id.Email,
		ClientReferenceID: id.UserID,
		SuccessURL:        s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.cancelURL(plan),
		Metadata:          entitlement.BuildMetadata(id.UserID, plan),
	}
	session, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		metrics.CheckoutSessions.WithLabelValues(string(plan.ID), metrics.ResultError).Inc()
		return "", fmt.Errorf("%s: %w", op, ErrUpstream)
	}

	metrics.CheckoutSessions.WithLabelValues(string(plan.ID), metrics.ResultOK).Inc()
	log.Info("checkout session created",
		slog.String("session_id", session.ID),
		slog.String("user_id", id.UserID),
		slog.String("tier", string(plan.ID)),
	)
	return session.URL, nil
}

// checkNotDowngrade запрещает покупку тарифа младше действующего.
func (s *Service) checkNotDowngrade(ctx context.Context, userID string, plan tier.Plan) error {
	user, err := s.users.CurrentUser(ctx, userID)
	if errors.Is(err, auth.ErrUnauthorized) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("checkout.checkNotDowngrade: %w", err)
	}
	if entitlement.Outranks(user.Entitlement, plan.ID, s.now()) {
		return ErrHigherTierActive
	}
	return nil
}

func (s *Service) cancelURL(plan tier.Plan) string {
	if plan.AddOn {
		return s.appURL + "/tutoring"
	}
	return s.appURL + "/pricing"
}
