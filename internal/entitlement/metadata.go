package entitlement

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/examprep/internal/lib/month"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

// Ключи метаданных платёжной сессии.
const (
	KeyUserID         = "userId"
	KeyTier           = "tier"
	KeyDuration       = "duration"
	KeyType           = "type"
	KeySessions       = "sessions"
	KeyValidityMonths = "validityMonths"

	typeTutoring = "tutoring"
)

// Ошибки разбора метаданных.
var (
	ErrMissingMetadata = errors.New("missing required metadata")
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// Kind - вид покупки.
type Kind int

// Виды покупок.
const (
	KindSubscription Kind = iota + 1
	KindTutoring
)

// Purchase - покупка, восстановленная из метаданных сессии.
type Purchase struct {
	UserID         string
	Kind           Kind
	Tier           tier.ID
	DurationMonths int
	Sessions       int
	ValidityMonths int
}

// BuildMetadata строит метаданные сессии только из таблицы тарифов.
func BuildMetadata(userID string, plan tier.Plan) map[string]string {
	if plan.AddOn {
		return map[string]string{
			KeyUserID:         userID,
			KeyType:           typeTutoring,
			KeySessions:       strconv.Itoa(plan.Sessions),
			KeyValidityMonths: strconv.Itoa(plan.ValidityMonths),
		}
	}
	return map[string]string{
		KeyUserID:   userID,
		KeyTier:     string(plan.ID),
		KeyDuration: strconv.Itoa(plan.DurationMonths),
	}
}

// ParseMetadata восстанавливает покупку из метаданных.
// Без userId или без срока (пакета занятий) возвращает ErrMissingMetadata,
// userId не в формате UUID - ErrInvalidMetadata.
func ParseMetadata(md map[string]string) (Purchase, error) {
	userID := md[KeyUserID]
	if userID == "" {
		return Purchase{}, fmt.Errorf("%w: %s", ErrMissingMetadata, KeyUserID)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return Purchase{}, fmt.Errorf("%w: %s=%q", ErrInvalidMetadata, KeyUserID, userID)
	}

	if md[KeyType] == typeTutoring {
		sessions, err := positiveInt(md, KeySessions)
		if err != nil {
			return Purchase{}, err
		}
		validity, err := positiveInt(md, KeyValidityMonths)
		if err != nil {
			return Purchase{}, err
		}
		return Purchase{
			UserID:         userID,
			Kind:           KindTutoring,
			Tier:           tier.Tutoring,
			Sessions:       sessions,
			ValidityMonths: validity,
		}, nil
	}

	duration, err := positiveInt(md, KeyDuration)
	if err != nil {
		return Purchase{}, err
	}

	var plan tier.Plan
	if raw := md[KeyTier]; raw != "" {
		p, ok := tier.Lookup(tier.ID(raw))
		if !ok || p.AddOn {
			return Purchase{}, fmt.Errorf("%w: tier %q", ErrInvalidMetadata, raw)
		}
		plan = p
	} else {
		p, ok := tier.ByDuration(duration)
		if !ok {
			return Purchase{}, fmt.Errorf("%w: no tier for duration %d", ErrInvalidMetadata, duration)
		}
		plan = p
	}

	return Purchase{
		UserID:         userID,
		Kind:           KindSubscription,
		Tier:           plan.ID,
		DurationMonths: duration,
	}, nil
}

// Grant превращает подписку в оплату, привязанную к событию.
func (p Purchase) Grant(eventID string, anchor time.Time, customerID, sessionID string) Grant {
	return Grant{
		EventID:        eventID,
		Tier:           p.Tier,
		DurationMonths: p.DurationMonths,
		Anchor:         anchor,
		CustomerID:     customerID,
		SessionID:      sessionID,
	}
}

// TutoringPackage строит пакет занятий со сроком от anchor.
func (p Purchase) TutoringPackage(sessionID string, anchor time.Time) models.TutoringPackage {
	return models.TutoringPackage{
		UserID:            p.UserID,
		CheckoutSessionID: sessionID,
		Sessions:          p.Sessions,
		ValidUntil:        month.Add(anchor, p.ValidityMonths),
	}
}

func positiveInt(md map[string]string, key string) (int, error) {
	raw, ok := md[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingMetadata, key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidMetadata, key, raw)
	}
	return n, nil
}
