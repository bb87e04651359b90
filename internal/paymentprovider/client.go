package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/magabrotheeeer/examprep/internal/config"
)

// Client работает с API Stripe.
type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient создаёт клиент Stripe. Если задан cfg.APIURL, запросы уходят на него.
func NewClient(cfg config.Stripe) *Client {
	var backends *stripe.Backends
	if cfg.APIURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(cfg.APIURL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateCheckoutSession создаёт разовую оплату картой одной позиции.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		CustomerEmail:     stripe.String(p.CustomerEmail),
		ClientReferenceID: stripe.String(p.ClientReferenceID),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("%s: %w: %s (status %d)", op, ErrUpstream, stripeErr.Msg, stripeErr.HTTPStatusCode)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("%s: %w: session %s has no url", op, ErrUpstream, s.ID)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ConstructEvent проверяет подпись заголовка Stripe-Signature и разбирает событие.
func (c *Client) ConstructEvent(payload []byte, signatureHeader string) (Event, error) {
	const op = "paymentprovider.ConstructEvent"

	if c.webhookSecret == "" || signatureHeader == "" {
		return Event{}, fmt.Errorf("%s: %w", op, ErrSignature)
	}
	raw, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%s: %w: %v", op, ErrSignature, err)
		}
		return Event{}, fmt.Errorf("%s: %w: %v", op, ErrPayload, err)
	}

	ev := Event{
		ID:      raw.ID,
		Type:    string(raw.Type),
		Created: time.Unix(raw.Created, 0).UTC(),
	}
	if !strings.HasPrefix(ev.Type, "checkout.session.") {
		return ev, nil
	}
	if raw.Data == nil {
		return Event{}, fmt.Errorf("%s: %w: missing data", op, ErrPayload)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw.Data.Raw, &s); err != nil {
		return Event{}, fmt.Errorf("%s: %w: %v", op, ErrPayload, err)
	}
	ev.SessionID = s.ID
	ev.ClientReferenceID = s.ClientReferenceID
	ev.CustomerEmail = s.CustomerEmail
	ev.PaymentStatus = string(s.PaymentStatus)
	ev.Metadata = s.Metadata
	if s.Customer != nil {
		ev.CustomerID = s.Customer.ID
	}
	return ev, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}
