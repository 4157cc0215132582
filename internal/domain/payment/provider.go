// internal/domain/payment/provider.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNoLineItems      = errors.New("checkout session needs at least one line item")
)

// Mode is the hosted checkout mode
type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// Webhook event types the storefront reacts to
const (
	EventSessionCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventSessionExpired        = "checkout.session.expired"
)

// Payment statuses reported on a completed session
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Provider creates hosted checkout sessions and authenticates their webhooks
type Provider interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// LineItem is one charge line. Recurring lines bill weekly.
type LineItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitAmount  int64  `json:"unit_amount"` // In cents
	Quantity    int64  `json:"quantity"`
	Recurring   bool   `json:"recurring,omitempty"`
}

// Total is unit amount times quantity
func (l LineItem) Total() int64 {
	return l.UnitAmount * l.Quantity
}

// SessionRequest describes a checkout session to create
type SessionRequest struct {
	CustomerEmail string
	Mode          Mode
	Currency      string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
	ExpiresAt     time.Time // zero leaves the provider default
}

// Total sums every line of the request
func (r *SessionRequest) Total() int64 {
	var total int64
	for _, item := range r.LineItems {
		total += item.Total()
	}
	return total
}

// Session is a created hosted checkout session
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// SessionResult is the provider's view of a finished session
type SessionResult struct {
	SessionID       string            `json:"session_id"`
	Mode            Mode              `json:"mode"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	SubscriptionID  string            `json:"subscription_id,omitempty"`
	CustomerID      string            `json:"customer_id,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency,omitempty"`
	Email           string            `json:"email,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Raw             json.RawMessage   `json:"-"`
}

// Paid reports whether the session settled without further payment due
func (r *SessionResult) Paid() bool {
	return r.PaymentStatus == PaymentStatusPaid || r.PaymentStatus == PaymentStatusNoPaymentRequired
}

// Event is a verified webhook delivery
type Event struct {
	ID      string
	Type    string
	Session *SessionResult
}
