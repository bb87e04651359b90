// Package entitlement содержит правила изменения доступа пользователя после оплаты.
//
// Все функции чистые: они не читают часы и не обращаются к хранилищу.
// Срок считается от момента создания платёжного события, поэтому повторная
// доставка того же события даёт то же состояние.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/examprep/internal/lib/month"
	"github.com/magabrotheeeer/examprep/internal/models"
	"github.com/magabrotheeeer/examprep/internal/tier"
)

// Grant - подтверждённая оплата подписки.
type Grant struct {
	EventID        string
	Tier           tier.ID
	DurationMonths int
	// Anchor - время создания платёжного события.
	Anchor     time.Time
	CustomerID string
	SessionID  string
}

// PeriodEnd возвращает конец периода, который даёт оплата.
func (g Grant) PeriodEnd() time.Time {
	return month.Add(g.Anchor, g.DurationMonths)
}

// Apply возвращает состояние после применения оплаты g.
//
// Конец периода только продлевается: новое значение равно максимуму из текущего
// и Anchor+DurationMonths. Если на момент Anchor действует тариф с большим
// рангом, состояние не меняется: оплата младшего тарифа не продлевает старший.
func Apply(st models.Entitlement, g Grant) models.Entitlement {
	if Outranks(st, g.Tier, g.Anchor) {
		return st
	}

	end := g.PeriodEnd()
	if st.CurrentPeriodEnd != nil && st.CurrentPeriodEnd.After(end) {
		end = *st.CurrentPeriodEnd
	}

	next := st
	next.Tier = string(g.Tier)
	next.SubscriptionStatus = models.StatusActive
	next.CurrentPeriodEnd = &end
	if g.CustomerID != "" {
		next.CustomerID = g.CustomerID
	}
	if g.SessionID != "" {
		next.SubscriptionID = g.SessionID
	}
	return next
}

// Outranks сообщает, действует ли в момент at тариф старше id.
func Outranks(st models.Entitlement, id tier.ID, at time.Time) bool {
	return IsActive(st, at) && tier.Rank(tier.ID(st.Tier)) > tier.Rank(id)
}

// ApplyTutoring отмечает покупку пакета занятий. Тариф подписки не меняется,
// кроме случая, когда у пользователя его нет.
func ApplyTutoring(st models.Entitlement) models.Entitlement {
	if st.Tier == "" || st.Tier == string(tier.None) {
		st.Tier = string(tier.Tutoring)
	}
	if st.SubscriptionStatus == "" {
		st.SubscriptionStatus = models.StatusNone
	}
	return st
}

// IsActive сообщает, действует ли подписка в момент at.
func IsActive(st models.Entitlement, at time.Time) bool {
	return st.SubscriptionStatus == models.StatusActive &&
		st.CurrentPeriodEnd != nil &&
		at.Before(*st.CurrentPeriodEnd)
}

// EffectiveStatus возвращает статус на момент now: активная подписка с прошедшим
// концом периода считается истёкшей.
func EffectiveStatus(st models.Entitlement, now time.Time) string {
	switch st.SubscriptionStatus {
	case models.StatusActive:
		if IsActive(st, now) {
			return models.StatusActive
		}
		return models.StatusExpired
	case "":
		return models.StatusNone
	default:
		return st.SubscriptionStatus
	}
}

// Plan возвращает тариф, действующий в момент now, и признак его наличия.
func Plan(st models.Entitlement, now time.Time) (tier.Plan, bool) {
	if !IsActive(st, now) {
		return tier.Plan{}, false
	}
	p, ok := tier.Lookup(tier.ID(st.Tier))
	if !ok || p.AddOn {
		return tier.Plan{}, false
	}
	return p, true
}
