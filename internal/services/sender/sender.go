// Package sender превращает сообщения из очереди уведомлений в письма.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/lib/smtp"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

const dateLayout = "2 January 2006"

// Mailer отправляет письмо.
type Mailer interface {
	Send(msg smtp.Message) error
}

// Service формирует и отправляет письма.
type Service struct {
	mailer Mailer
	appURL string
	log    *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(mailer Mailer, appURL string, log *slog.Logger) *Service {
	return &Service{
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		log:    log,
	}
}

// SendEntitlementActivated отправляет подтверждение покупки.
// Нечитаемое сообщение отбрасывается: повторная доставка его не исправит.
func (s *Service) SendEntitlementActivated(body []byte) error {
	const op = "sender.SendEntitlementActivated"

	n, ok := s.decode(op, body)
	if !ok {
		return nil
	}

	var text string
	switch {
	case n.Sessions > 0:
		text = fmt.Sprintf("Hello %s,\n\nyour tutoring package with %d one-on-one sessions is ready.", n.Name, n.Sessions)
		if n.ValidUntil != nil {
			text += fmt.Sprintf(" Book them before %s.", n.ValidUntil.Format(dateLayout))
		}
		text += fmt.Sprintf("\n\nSchedule a session: %s/tutoring\n", s.appURL)
	default:
		text = fmt.Sprintf("Hello %s,\n\nthank you for your purchase. Your %s plan is active", n.Name, planName(n.Tier))
		if n.PeriodEnd != nil {
			text += " until " + n.PeriodEnd.Format(dateLayout)
		}
		text += fmt.Sprintf(".\n\nStart practising: %s/problems\n", s.appURL)
	}

	return s.send(op, n, smtp.Message{
		To:      []string{n.Email},
		Subject: "Your ExamPrep purchase is confirmed",
		Body:    text,
	})
}

// SendAccessExpiring напоминает о скором окончании доступа.
func (s *Service) SendAccessExpiring(body []byte) error {
	const op = "sender.SendAccessExpiring"

	n, ok := s.decode(op, body)
	if !ok {
		return nil
	}

	end := "soon"
	if n.PeriodEnd != nil {
		end = "on " + n.PeriodEnd.Format(dateLayout)
	}
	text := fmt.Sprintf("Hello %s,\n\nyour %s plan ends %s.\n\nRenew to keep your progress going: %s/pricing\n",
		n.Name, planName(n.Tier), end, s.appURL)

	return s.send(op, n, smtp.Message{
		To:      []string{n.Email},
		Subject: "Your ExamPrep access is ending soon",
		Body:    text,
	})
}

func (s *Service) decode(op string, body []byte) (models.Notification, bool) {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal notification", slog.String("op", op), sl.Err(err))
		metrics.NotificationsSent.WithLabelValues("unknown", metrics.ResultInvalid).Inc()
		return n, false
	}
	if n.Email == "" {
		s.log.Error("notification without recipient", slog.String("op", op), slog.String("user_id", n.UserID))
		metrics.NotificationsSent.WithLabelValues(n.Kind, metrics.ResultInvalid).Inc()
		return n, false
	}
	return n, true
}

func (s *Service) send(op string, n models.Notification, msg smtp.Message) error {
	start := time.Now()
	if err := s.mailer.Send(msg); err != nil {
		s.log.Error("failed to send email", slog.String("op", op), slog.String("user_id", n.UserID), sl.Err(err))
		metrics.NotificationsSent.WithLabelValues(n.Kind, metrics.ResultError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.NotificationsSent.WithLabelValues(n.Kind, metrics.ResultOK).Inc()
	s.log.Info("email sent",
		slog.String("op", op),
		slog.String("user_id", n.UserID),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

func planName(id string) string {
	if p, ok := tier.Lookup(tier.ID(id)); ok {
		return p.Name
	}
	return id
}
