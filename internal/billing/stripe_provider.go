package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/subscriptionitem"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider on top of stripe-go.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the global stripe client.
// Returns nil when secretKey is empty: billing then runs in degraded mode.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	if secretKey == "" {
		return nil
	}
	stripe.Key = secretKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, params CustomerParams) (string, error) {
	if params.ExistingID != "" {
		cust, err := customer.Get(params.ExistingID, nil)
		if err == nil && cust != nil && !cust.Deleted {
			return cust.ID, nil
		}
		// fall through and create a fresh customer
	}

	cp := &stripe.CustomerParams{
		Email: stripe.String(params.Email),
		Name:  stripe.String(params.Name),
	}
	cp.Context = ctx
	if params.CompanyID != "" {
		cp.AddMetadata("company_id", params.CompanyID)
	}

	cust, err := customer.New(cp)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	ap := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	ap.Context = ctx
	if _, err := paymentmethod.Attach(paymentMethodID, ap); err != nil {
		return fmt.Errorf("stripe: attach payment method: %w", err)
	}

	up := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	up.Context = ctx
	if _, err := customer.Update(customerID, up); err != nil {
		return fmt.Errorf("stripe: set default payment method: %w", err)
	}
	return nil
}

func (p *StripeProvider) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	items := make([]*stripe.SubscriptionItemsParams, 0, len(params.PriceIDs))
	for _, priceID := range params.PriceIDs {
		items = append(items, &stripe.SubscriptionItemsParams{Price: stripe.String(priceID)})
	}

	sp := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items:    items,
		// Incomplete until the first invoice is paid; 3DS flows surface as
		// a payment intent in requires_action.
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	sp.Context = ctx
	if params.PaymentMethodID != "" {
		sp.DefaultPaymentMethod = stripe.String(params.PaymentMethodID)
	}
	if params.CouponID != "" {
		sp.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		sp.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}
	sp.AddExpand("latest_invoice.payments.data.payment.payment_intent")

	sub, err := subscription.New(sp)
	if err != nil {
		return nil, fmt.Errorf("stripe: create subscription: %w", err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sp := &stripe.SubscriptionParams{}
	sp.Context = ctx
	sp.AddExpand("latest_invoice.payments.data.payment.payment_intent")

	sub, err := subscription.Get(subscriptionID, sp)
	if err != nil {
		return nil, fmt.Errorf("stripe: get subscription %s: %w", subscriptionID, err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string) ([]*Subscription, error) {
	lp := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	lp.Context = ctx

	var out []*Subscription
	iter := subscription.List(lp)
	for iter.Next() {
		out = append(out, mapSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list subscriptions for %s: %w", customerID, err)
	}
	return out, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	cp := &stripe.SubscriptionCancelParams{}
	cp.Context = ctx
	sub, err := subscription.Cancel(subscriptionID, cp)
	if err != nil {
		return nil, fmt.Errorf("stripe: cancel subscription %s: %w", subscriptionID, err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProvider) AddSubscriptionItem(ctx context.Context, params ItemParams) (*SubscriptionItem, error) {
	ip := &stripe.SubscriptionItemParams{
		Subscription: stripe.String(params.SubscriptionID),
		Price:        stripe.String(params.PriceID),
	}
	ip.Context = ctx
	if params.Quantity > 0 {
		ip.Quantity = stripe.Int64(params.Quantity)
	}
	if params.IdempotencyKey != "" {
		ip.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}

	item, err := subscriptionitem.New(ip)
	if err != nil {
		return nil, fmt.Errorf("stripe: add subscription item: %w", err)
	}
	return mapSubscriptionItem(item), nil
}

func (p *StripeProvider) RemoveSubscriptionItem(ctx context.Context, itemID string) error {
	if _, err := subscriptionitem.Del(itemID, nil); err != nil {
		return fmt.Errorf("stripe: remove subscription item %s: %w", itemID, err)
	}
	return nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe: webhook signature: %w", err)
	}

	out := &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  json.RawMessage(event.Data.Raw),
	}

	switch {
	case strings.HasPrefix(out.Type, "invoice."):
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("stripe: decode invoice event: %w", err)
		}
		out.Invoice = mapInvoice(&inv)
	case strings.HasPrefix(out.Type, "customer.subscription."):
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode subscription event: %w", err)
		}
		out.Subscription = mapSubscription(&sub)
	case strings.HasPrefix(out.Type, "charge."):
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("stripe: decode charge event: %w", err)
		}
		out.Charge = mapCharge(&ch)
	case strings.HasPrefix(out.Type, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: decode payment_intent event: %w", err)
		}
		out.PaymentIntent = mapPaymentIntent(&pi)
	}

	return out, nil
}

// --- SDK -> DTO mapping ---

func mapSubscription(s *stripe.Subscription) *Subscription {
	if s == nil {
		return nil
	}
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		for _, it := range s.Items.Data {
			out.Items = append(out.Items, *mapSubscriptionItem(it))
		}
	}
	// Billing periods live on the items since API version 2025-03-31.
	if len(out.Items) > 0 {
		out.CurrentPeriodStart = out.Items[0].CurrentPeriodStart
		out.CurrentPeriodEnd = out.Items[0].CurrentPeriodEnd
	}
	if s.LatestInvoice != nil {
		out.LatestInvoice = mapInvoice(s.LatestInvoice)
		if pi := latestInvoicePaymentIntent(s.LatestInvoice); pi != nil {
			out.PaymentIntentStatus = string(pi.Status)
			out.PaymentIntentClientSecret = pi.ClientSecret
		}
	}
	return out
}

func mapSubscriptionItem(it *stripe.SubscriptionItem) *SubscriptionItem {
	out := &SubscriptionItem{
		ID:                 it.ID,
		Quantity:           it.Quantity,
		CurrentPeriodStart: time.Unix(it.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(it.CurrentPeriodEnd, 0).UTC(),
	}
	if it.Price != nil {
		out.PriceID = it.Price.ID
	}
	return out
}

func mapInvoice(inv *stripe.Invoice) *Invoice {
	if inv == nil {
		return nil
	}
	out := &Invoice{
		ID:          inv.ID,
		Status:      string(inv.Status),
		Paid:        inv.Status == stripe.InvoiceStatusPaid,
		AmountCents: inv.AmountPaid,
		Currency:    string(inv.Currency),
		PeriodStart: time.Unix(inv.PeriodStart, 0).UTC(),
		PeriodEnd:   time.Unix(inv.PeriodEnd, 0).UTC(),
		Created:     time.Unix(inv.Created, 0).UTC(),
	}
	if out.AmountCents == 0 {
		out.AmountCents = inv.AmountDue
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil &&
		inv.Parent.SubscriptionDetails.Subscription != nil {
		out.SubscriptionID = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			out.Lines = append(out.Lines, mapInvoiceLine(line))
		}
	}
	return out
}

func mapInvoiceLine(line *stripe.InvoiceLineItem) InvoiceLine {
	out := InvoiceLine{
		PeriodStart: time.Unix(line.Period.Start, 0).UTC(),
		PeriodEnd:   time.Unix(line.Period.End, 0).UTC(),
	}
	if line.Parent != nil && line.Parent.SubscriptionItemDetails != nil {
		out.SubscriptionID = line.Parent.SubscriptionItemDetails.Subscription
	}
	if line.Pricing != nil && line.Pricing.PriceDetails != nil {
		out.PriceID = line.Pricing.PriceDetails.Price
	}
	return out
}

// latestInvoicePaymentIntent digs the payment intent out of the expanded
// invoice payments list. Invoices stopped carrying payment_intent directly
// in the 2025-03-31 API.
func latestInvoicePaymentIntent(inv *stripe.Invoice) *stripe.PaymentIntent {
	if inv == nil || inv.Payments == nil {
		return nil
	}
	for _, p := range inv.Payments.Data {
		if p.Payment != nil && p.Payment.PaymentIntent != nil {
			return p.Payment.PaymentIntent
		}
	}
	return nil
}

func mapCharge(c *stripe.Charge) *Charge {
	out := &Charge{
		ID:          c.ID,
		AmountCents: c.Amount,
		Currency:    string(c.Currency),
		Status:      string(c.Status),
		Refunded:    c.Refunded,
		Description: c.Description,
		Created:     time.Unix(c.Created, 0).UTC(),
	}
	if c.Customer != nil {
		out.CustomerID = c.Customer.ID
	}
	if c.PaymentIntent != nil {
		out.PaymentIntentID = c.PaymentIntent.ID
	}
	return out
}

func mapPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:          pi.ID,
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
		Status:      string(pi.Status),
		Created:     time.Unix(pi.Created, 0).UTC(),
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	return out
}
