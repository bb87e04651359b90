// Package paymentprovider - адаптер платёжного провайдера Stripe: создание
// checkout-сессий и проверка подписи входящих событий.
package paymentprovider

import (
	"errors"
	"time"
)

// Типы событий, которые меняют состояние доступа.
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded      = "payment_intent.succeeded"
	EventPaymentIntentFailed         = "payment_intent.payment_failed"
)

// PaymentStatusUnpaid - статус checkout-сессии, оплата которой ещё не прошла.
const PaymentStatusUnpaid = "unpaid"

// Ошибки адаптера.
var (
	ErrSignature = errors.New("invalid webhook signature")
	ErrPayload   = errors.New("invalid webhook payload")
	ErrUpstream  = errors.New("payment provider error")
)

// CheckoutParams - параметры новой checkout-сессии.
type CheckoutParams struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// Session - созданная checkout-сессия.
type Session struct {
	ID  string
	URL string
}

// Event - проверенное событие провайдера. Поля сессии заполнены только для
// событий checkout.session.*.
type Event struct {
	ID                string
	Type              string
	Created           time.Time
	SessionID         string
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	PaymentStatus     string
	Metadata          map[string]string
}

// IsCheckout сообщает, относится ли событие к checkout-сессии.
func (e Event) IsCheckout() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventCheckoutAsyncPaymentSucceed
}
