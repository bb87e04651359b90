package models

import "time"

// Виды уведомлений.
const (
	NotificationEntitlementActivated = "entitlement.activated"
	NotificationAccessExpiring       = "access.expiring"
)

// Notification - сообщение в очередь писем.
type Notification struct {
	Kind       string     `json:"kind"`
	UserID     string     `json:"userId"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Tier       string     `json:"tier"`
	PeriodEnd  *time.Time `json:"periodEnd,omitempty"`
	Sessions   int        `json:"sessions,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}
