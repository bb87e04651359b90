// Package reconcile применяет подтверждённые платёжные события к доступу пользователей.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/examprep/internal/entitlement"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/paymentprovider"
	"github.com/magabrotheeeer/examprep/internal/storage"
)

// Ошибки обработки. ErrSignature и ErrPayload означают, что событие не применено.
var (
	ErrSignature   = errors.New("signature verification failed")
	ErrPayload     = errors.New("invalid event payload")
	ErrUnknownUser = errors.New("unknown user")
)

// Outcome - итог обработки события.
type Outcome string

// Итоги обработки.
const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// EventVerifier проверяет подпись и разбирает событие.
type EventVerifier interface {
	ConstructEvent(payload []byte, signatureHeader string) (paymentprovider.Event, error)
}

// Repository - транзакционные операции над доступом.
type Repository interface {
	ApplyEntitlement(ctx context.Context, eventID, eventType, userID string, mutate storage.EntitlementMutation) (models.Entitlement, error)
	AddTutoringPackage(ctx context.Context, eventID, eventType string, pkg models.TutoringPackage, mutate storage.EntitlementMutation) (models.Entitlement, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Cache сбрасывает снимок пользователя.
type Cache interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// Publisher отправляет уведомления в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service обрабатывает webhook-события провайдера.
type Service struct {
	verifier  EventVerifier
	repo      Repository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
}

// NewService создаёт Service.
func NewService(verifier EventVerifier, repo Repository, cache Cache, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		verifier:  verifier,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// Handle проверяет подпись события и применяет его. Повторно доставленное
// событие подтверждается без изменений (OutcomeDuplicate).
func (s *Service) Handle(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	const op = "reconcile.Handle"
	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(ctx)),
	)

	ev, err := s.verifier.ConstructEvent(payload, signatureHeader)
	if errors.Is(err, paymentprovider.ErrSignature) {
		log.Warn("webhook signature verification failed", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("unknown", metrics.ResultInvalid).Inc()
		return "", ErrSignature
	}
	if err != nil {
		log.Warn("webhook payload rejected", sl.Err(err))
		metrics.WebhookEvents.WithLabelValues("unknown", metrics.ResultInvalid).Inc()
		return "", ErrPayload
	}

	start := time.Now()
	log = log.With(slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))
	outcome, err := s.dispatch(ctx, log, ev)
	metrics.WebhookDuration.WithLabelValues(ev.Type).Observe(time.Since(start).Seconds())
	metrics.WebhookEvents.WithLabelValues(ev.Type, resultLabel(outcome, err)).Inc()
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, log *slog.Logger, ev paymentprovider.Event) (Outcome, error) {
	switch {
	case ev.IsCheckout():
		if ev.PaymentStatus == paymentprovider.PaymentStatusUnpaid {
			log.Info("checkout session not paid yet, waiting for async payment")
			return OutcomeIgnored, nil
		}
		return s.applyCheckout(ctx, log, ev)
	case ev.Type == paymentprovider.EventPaymentIntentSucceeded:
		log.Info("payment intent succeeded")
	case ev.Type == paymentprovider.EventPaymentIntentFailed:
		log.Warn("payment intent failed")
	default:
		log.Info("unhandled event type")
	}
	return OutcomeIgnored, nil
}

func (s *Service) applyCheckout(ctx context.Context, log *slog.Logger, ev paymentprovider.Event) (Outcome, error) {
	const op = "reconcile.applyCheckout"

	purchase, err := entitlement.ParseMetadata(ev.Metadata)
	if err != nil {
		log.Warn("checkout metadata rejected", sl.Err(err))
		return "", fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if ev.ClientReferenceID != "" && ev.ClientReferenceID != purchase.UserID {
		log.Warn("client reference does not match metadata user",
			slog.String("client_reference_id", ev.ClientReferenceID),
			slog.String("user_id", purchase.UserID),
		)
		return "", fmt.Errorf("%w: user mismatch", ErrPayload)
	}
	log = log.With(slog.String("user_id", purchase.UserID), slog.String("tier", string(purchase.Tier)))

	var (
		state models.Entitlement
		pkg   models.TutoringPackage
	)
	switch purchase.Kind {
	case entitlement.KindTutoring:
		pkg = purchase.TutoringPackage(ev.SessionID, ev.Created)
		state, err = s.repo.AddTutoringPackage(ctx, ev.ID, ev.Type, pkg, entitlement.ApplyTutoring)
	default:
		grant := purchase.Grant(ev.ID, ev.Created, ev.CustomerID, ev.SessionID)
		state, err = s.repo.ApplyEntitlement(ctx, ev.ID, ev.Type, purchase.UserID, func(st models.Entitlement) models.Entitlement {
			return entitlement.Apply(st, grant)
		})
	}
	switch {
	case errors.Is(err, storage.ErrEventProcessed):
		log.Info("event already processed")
		return OutcomeDuplicate, nil
	case errors.Is(err, storage.ErrUserNotFound):
		log.Warn("checkout for unknown user")
		return "", ErrUnknownUser
	case err != nil:
		log.Error("failed to apply checkout", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if purchase.Kind == entitlement.KindSubscription && state.Tier != string(purchase.Tier) {
		log.Warn("purchase did not change access, a higher tier is active",
			slog.String("active_tier", state.Tier),
		)
	}
	metrics.EntitlementsGranted.WithLabelValues(string(purchase.Tier)).Inc()
	log.Info("entitlement updated",
		slog.String("status", state.SubscriptionStatus),
		slog.Any("current_period_end", state.CurrentPeriodEnd),
	)

	if err := s.cache.InvalidateUser(ctx, purchase.UserID); err != nil {
		log.Warn("failed to invalidate user cache", sl.Err(err))
	}
	s.notify(ctx, log, purchase, state, pkg)
	return OutcomeApplied, nil
}

// notify публикует уведомление об активации. Ошибка публикации только логируется.
func (s *Service) notify(ctx context.Context, log *slog.Logger, p entitlement.Purchase, st models.Entitlement, pkg models.TutoringPackage) {
	user, err := s.repo.GetUser(ctx, p.UserID)
	if err != nil {
		log.Warn("failed to load user for notification", sl.Err(err))
		return
	}
	msg := models.Notification{
		Kind:   models.NotificationEntitlementActivated,
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Tier:   string(p.Tier),
	}
	if p.Kind == entitlement.KindTutoring {
		validUntil := pkg.ValidUntil
		msg.Sessions = pkg.Sessions
		msg.ValidUntil = &validUntil
	} else {
		msg.Tier = st.Tier
		msg.PeriodEnd = st.CurrentPeriodEnd
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingEntitlementActivated, msg); err != nil {
		log.Error("failed to publish activation notification", sl.Err(err))
	}
}

func resultLabel(o Outcome, err error) string {
	switch {
	case errors.Is(err, ErrPayload), errors.Is(err, ErrUnknownUser):
		return metrics.ResultInvalid
	case err != nil:
		return metrics.ResultError
	case o == OutcomeDuplicate:
		return metrics.ResultDuplicate
	case o == OutcomeIgnored:
		return metrics.ResultIgnored
	default:
		return metrics.ResultOK
	}
}
