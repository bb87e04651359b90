// Package tier - единственный источник правды о тарифах: цена, срок, ранг,
// доступные предметы и список возможностей. Его читают прайс-лист,
// создание платёжной сессии и правила доступа.
package tier

import (
	"errors"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// ID - идентификатор тарифа.
type ID string

// Тарифы.
const (
	None     ID = "none"
	Starter  ID = "starter"
	Enhanced ID = "enhanced"
	Complete ID = "complete"
	Tutoring ID = "tutoring"
)

// Currency - валюта всех цен.
const Currency = "eur"

// ErrUnknown возвращается для неизвестного идентификатора тарифа.
var ErrUnknown = errors.New("unknown tier")

// Plan описывает тариф.
type Plan struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	// DurationMonths - срок доступа подписки; у дополнений 0.
	DurationMonths int `json:"durationMonths,omitempty"`
	// Rank упорядочивает подписки: при пересечении сохраняется тариф с большим рангом.
	Rank           int              `json:"rank"`
	Sessions       int              `json:"sessions,omitempty"`
	ValidityMonths int              `json:"validityMonths,omitempty"`
	AddOn          bool             `json:"addOn"`
	Subjects       []models.Subject `json:"subjects,omitempty"`
	Analysis       bool             `json:"analysis"`
	Features       []string         `json:"features"`
}

var plans = []Plan{
	{
		ID:             Starter,
		Name:           "Starter",
		Description:    "Perfect for getting started",
		PriceCents:     3500,
		Currency:       Currency,
		DurationMonths: 6,
		Rank:           1,
		Subjects:       []models.Subject{models.SubjectMath, models.SubjectPhysics},
		Features: []string{
			"50+ practice problems",
			"Basic progress tracking",
			"Math and Physics problems",
			"Detailed solutions & hints",
			"Email support",
		},
	},
	{
		ID:             Enhanced,
		Name:           "Enhanced",
		Description:    "Most popular choice",
		PriceCents:     5000,
		Currency:       Currency,
		DurationMonths: 12,
		Rank:           2,
		Subjects:       []models.Subject{models.SubjectMath, models.SubjectPhysics, models.SubjectIntroAE},
		Features: []string{
			"150+ practice problems",
			"Advanced progress tracking",
			"All subjects: Math, Physics, Intro AE",
			"Topic-wise accuracy tracking",
			"Priority email support",
		},
	},
	{
		ID:             Complete,
		Name:           "Complete",
		Description:    "Everything you need",
		PriceCents:     10000,
		Currency:       Currency,
		DurationMonths: 18,
		Rank:           3,
		Subjects:       []models.Subject{models.SubjectMath, models.SubjectPhysics, models.SubjectIntroAE},
		Analysis:       true,
		Features: []string{
			"300+ practice problems",
			"AI-powered weak topic analysis",
			"Personalized study plans",
			"Smart problem recommendations",
			"1-on-1 consultation session",
		},
	},
	{
		ID:             Tutoring,
		Name:           "Tutoring Pack",
		Description:    "5 one-on-one tutoring sessions",
		PriceCents:     15000,
		Currency:       Currency,
		Sessions:       5,
		ValidityMonths: 6,
		AddOn:          true,
		Features: []string{
			"5 x 60 minute sessions",
			"Flexible scheduling",
			"Session notes and resources",
			"Valid for 6 months",
		},
	},
}

// Plans возвращает копию таблицы тарифов в порядке прайс-листа.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// Lookup ищет тариф по идентификатору.
func Lookup(id ID) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Parse проверяет строку и возвращает ID известного тарифа.
func Parse(s string) (ID, error) {
	if _, ok := Lookup(ID(s)); !ok {
		return "", ErrUnknown
	}
	return ID(s), nil
}

// ByDuration ищет подписку с указанным сроком.
func ByDuration(months int) (Plan, bool) {
	for _, p := range plans {
		if !p.AddOn && p.DurationMonths == months {
			return p, true
		}
	}
	return Plan{}, false
}

// Rank возвращает ранг тарифа; для неизвестных и дополнений 0.
func Rank(id ID) int {
	p, ok := Lookup(id)
	if !ok {
		return 0
	}
	return p.Rank
}

// AllowsSubject сообщает, открыт ли предмет тарифом.
func (p Plan) AllowsSubject(s models.Subject) bool {
	for _, allowed := range p.Subjects {
		if allowed == s {
			return true
		}
	}
	return false
}
