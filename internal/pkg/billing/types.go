package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPlan         = errors.New("unknown or unpaid plan")
	ErrUnknownPrice        = errors.New("no price configured for plan")
	ErrInvalidDiscountCode = errors.New("invalid discount code")
	ErrPageNotOwned        = errors.New("page does not belong to the customer")
	ErrNotConfigured       = errors.New("billing provider is not configured")
	ErrSubscriptionMissing = errors.New("subscription not found")
	// ErrAlreadySubscribed rejects a checkout for a page that is already paid.
	ErrAlreadySubscribed = fmt.Errorf("%w: page already has a paid subscription", ErrInvalidTransition)
)

// ProviderError wraps a failed call to the payment provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NormalizedSubscription is the provider-agnostic shape of a subscription.
type NormalizedSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	Interval           string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
	// ClientSecret confirms the first payment client-side; only set on create.
	ClientSecret   string
	RawPayloadJSON string
}

// CreateSubscriptionInput starts a paid plan for a page.
type CreateSubscriptionInput struct {
	UserID          string
	Email           string
	Plan            string
	Interval        string
	PaymentMethodID string
	DiscountCode    string
	PageID          string
	Slug            string
	// RequestID distinguishes deliberate retries; optional.
	RequestID string
}

// CreateSubscriptionResult is returned to the dashboard to confirm payment.
type CreateSubscriptionResult struct {
	SubscriptionID string `json:"subscriptionId"`
	CustomerID     string `json:"customerId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
	Status         string `json:"status"`
}

// SubscriptionRequest is what the service asks the provider to create.
type SubscriptionRequest struct {
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	CouponID        string
	Metadata        map[string]string
	IdempotencyKey  string
}

// CouponSpec is a discount code translated to provider terms.
type CouponSpec struct {
	ID         string
	Name       string
	PercentOff decimal.Decimal
	// AmountOff is in cents of Currency; zero for percentage coupons.
	AmountOff int64
	Currency  string
	Duration  string
}

type Invoice struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"`
	Status         string    `json:"status"`
	Currency       string    `json:"currency"`
	AmountDue      int64     `json:"amountDue"`
	AmountPaid     int64     `json:"amountPaid"`
	HostedURL      string    `json:"hostedInvoiceUrl,omitempty"`
	PDFURL         string    `json:"invoicePdf,omitempty"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	Created        time.Time `json:"created"`
}

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceID     string `json:"priceId"`
	UnitAmount  int64  `json:"unitAmount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
	Plan        string `json:"plan,omitempty"`
}

type PaymentMethod struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// WebhookResult reports what happened to a delivered event.
type WebhookResult struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}
