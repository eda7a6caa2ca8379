package billing

import (
	"context"
	"encoding/json"
	"time"
)

// Provider abstracts the remote billing system. Services depend on this
// interface only; the Stripe SDK is confined to the adapter. A nil Provider
// in the service layer means billing runs in degraded, local-only mode.
type Provider interface {
	// EnsureCustomer returns the id of an existing remote customer or creates one.
	EnsureCustomer(ctx context.Context, params CustomerParams) (string, error)
	// AttachPaymentMethod attaches the payment method and makes it the
	// customer's default for invoices.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ListSubscriptions returns all subscriptions of the customer, any status.
	ListSubscriptions(ctx context.Context, customerID string) ([]*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)

	AddSubscriptionItem(ctx context.Context, params ItemParams) (*SubscriptionItem, error)
	RemoveSubscriptionItem(ctx context.Context, itemID string) error

	// ParseWebhook verifies the signature over the raw payload and decodes
	// the event into provider-neutral DTOs.
	ParseWebhook(payload []byte, sigHeader string) (*Event, error)
}

type CustomerParams struct {
	ExistingID string // when set, verified/reused instead of creating
	Email      string
	Name       string
	CompanyID  string // stored in remote metadata for webhook attribution
}

type SubscriptionParams struct {
	CustomerID      string
	PriceIDs        []string // base plan price first, then add-on prices
	PaymentMethodID string
	CouponID        string
	Metadata        map[string]string
	IdempotencyKey  string
}

type ItemParams struct {
	SubscriptionID string
	PriceID        string
	Quantity       int64
	IdempotencyKey string
}

type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	Items              []SubscriptionItem
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string

	LatestInvoice *Invoice
	// Set when the latest invoice needs additional customer action
	PaymentIntentStatus       string
	PaymentIntentClientSecret string
}

// PriceID returns the price of the first (base) item, if any.
func (s *Subscription) PriceID() string {
	if len(s.Items) == 0 {
		return ""
	}
	return s.Items[0].PriceID
}

// HasItemWithPrice reports whether any line item uses the given price.
func (s *Subscription) HasItemWithPrice(priceID string) (string, bool) {
	for _, it := range s.Items {
		if it.PriceID == priceID {
			return it.ID, true
		}
	}
	return "", false
}

type SubscriptionItem struct {
	ID                 string
	PriceID            string
	Quantity           int64
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string // empty when the invoice carries no explicit reference
	Status         string
	Paid           bool
	AmountCents    int64
	Currency       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Created        time.Time
	Lines          []InvoiceLine
}

// LineSubscriptionID scans line items for a subscription reference.
// Used as the second attribution stage when the invoice itself carries none.
func (i *Invoice) LineSubscriptionID() string {
	for _, l := range i.Lines {
		if l.SubscriptionID != "" {
			return l.SubscriptionID
		}
	}
	return ""
}

type InvoiceLine struct {
	SubscriptionID string
	PriceID        string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

type Charge struct {
	ID              string
	CustomerID      string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	Status          string
	Refunded        bool
	Description     string
	Created         time.Time
}

type PaymentIntent struct {
	ID          string
	CustomerID  string
	AmountCents int64
	Currency    string
	Status      string
	Created     time.Time
}

// Event is a verified webhook delivery. Exactly one of the typed payloads
// is populated depending on Type; Raw always carries the original object.
type Event struct {
	ID   string
	Type string
	Raw  json.RawMessage

	Invoice       *Invoice
	Subscription  *Subscription
	Charge        *Charge
	PaymentIntent *PaymentIntent
}
