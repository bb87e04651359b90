// Package scheduler периодически ищет доступы, которые скоро закончатся, и
// ставит напоминания в очередь.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Repository ищет истекающие доступы и отмечает отправленные напоминания.
type Repository interface {
	FindExpiring(ctx context.Context, from, to time.Time) ([]models.ExpiringUser, error)
	MarkExpiryReminded(ctx context.Context, userID string, periodEnd time.Time) error
}

// Publisher отправляет уведомления в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service - планировщик напоминаний.
type Service struct {
	repo         Repository
	publisher    Publisher
	interval     time.Duration
	notifyBefore time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, publisher Publisher, interval, notifyBefore time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		publisher:    publisher,
		interval:     interval,
		notifyBefore: notifyBefore,
		log:          log,
		now:          time.Now,
	}
}

// Run выполняет проход сразу и затем каждые interval, пока не отменён ctx.
func (s *Service) Run(ctx context.Context) {
	s.runOnceLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnceLogged(ctx)
		}
	}
}

func (s *Service) runOnceLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("reminder pass failed", sl.Err(err))
	}
}

// RunOnce публикует напоминания для доступов, заканчивающихся в ближайшие
// notifyBefore, и возвращает число опубликованных. Пользователь получает
// одно напоминание на каждый конец периода; при ошибке публикации он
// попадёт в следующий проход.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	now := s.now().UTC()
	users, err := s.repo.FindExpiring(ctx, now, now.Add(s.notifyBefore))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		log.Info("no expiring entitlements found")
		return 0, nil
	}
	log.Info("found expiring entitlements", slog.Int("count", len(users)))

	sent := 0
	for _, u := range users {
		end := u.CurrentPeriodEnd
		msg := models.Notification{
			Kind:      models.NotificationAccessExpiring,
			UserID:    u.UserID,
			Email:     u.Email,
			Name:      u.Name,
			Tier:      u.Tier,
			PeriodEnd: &end,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingAccessExpiring, msg); err != nil {
			log.Error("failed to publish reminder", slog.String("user_id", u.UserID), sl.Err(err))
			continue
		}
		if err := s.repo.MarkExpiryReminded(ctx, u.UserID, end); err != nil {
			log.Error("failed to mark reminder", slog.String("user_id", u.UserID), sl.Err(err))
		}
		sent++
	}
	return sent, nil
}
