package models

import "time"

// Статусы подписки. StatusExpired не хранится, а вычисляется при чтении.
const (
	StatusNone    = "none"
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Entitlement - сохранённое состояние доступа пользователя.
type Entitlement struct {
	Tier               string     `json:"tier"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	CustomerID         string     `json:"customerId,omitempty"`
	SubscriptionID     string     `json:"subscriptionId,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd"`
}

// User представляет зарегистрированного пользователя.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"-"`
	Entitlement  Entitlement `json:"entitlement"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// TutoringPackage - купленный пакет занятий с репетитором.
type TutoringPackage struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"userId"`
	CheckoutSessionID string    `json:"checkoutSessionId"`
	Sessions          int       `json:"sessions"`
	ValidUntil        time.Time `json:"validUntil"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ExpiringUser - пользователь, доступ которого скоро закончится. Используется планировщиком.
type ExpiringUser struct {
	UserID           string    `json:"userId"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Tier             string    `json:"tier"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd"`
}
