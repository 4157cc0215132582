// internal/domain/payment/stripe_service.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
)

// StripeService is the Stripe Checkout implementation of Provider
type StripeService struct {
	sessions      *session.Client
	webhookSecret string
	currency      string
	log           *logrus.Logger
}

// NewStripeService creates a Stripe provider from config
func NewStripeService(cfg *config.Config, logger *logrus.Logger) *StripeService {
	currency := strings.ToLower(cfg.Stripe.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeService{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.Stripe.SecretKey,
		},
		webhookSecret: cfg.Stripe.WebhookSecret,
		currency:      currency,
		log:           logger,
	}
}

// CreateSession creates a hosted checkout session
func (s *StripeService) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	params, err := s.buildParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		s.log.WithError(err).WithField("mode", req.Mode).Error("stripe checkout session creation failed")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": cs.ID, "mode": req.Mode, "amount": req.Total(),
	}).Info("checkout session created")
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *StripeService) buildParams(req *SessionRequest) (*stripe.CheckoutSessionParams, error) {
	if len(req.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	currency := s.currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(req.Mode)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}

		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(currency),
			UnitAmount:  stripe.Int64(item.UnitAmount),
			ProductData: product,
		}
		if item.Recurring {
			priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalWeek)),
			}
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(item.Quantity),
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	switch req.Mode {
	case ModeSubscription:
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: req.Metadata}
	default:
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: req.Metadata}
	}

	return params, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes checkout
// session events. Other event types come back with a nil Session.
func (s *StripeService) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(event.Type, "checkout.session.") || evt.Data == nil {
		return event, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	event.Session = sessionResult(&cs, evt.Data.Raw)
	return event, nil
}

func sessionResult(cs *stripe.CheckoutSession, raw json.RawMessage) *SessionResult {
	result := &SessionResult{
		SessionID:     cs.ID,
		Mode:          Mode(cs.Mode),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Email:         cs.CustomerEmail,
		Metadata:      cs.Metadata,
		Raw:           raw,
	}
	if cs.PaymentIntent != nil {
		result.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.Subscription != nil {
		result.SubscriptionID = cs.Subscription.ID
	}
	if cs.Customer != nil {
		result.CustomerID = cs.Customer.ID
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		result.Email = cs.CustomerDetails.Email
	}
	return result
}
