package billing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const stripeMaxNetworkRetries = 2

var _ Provider = (*StripeProvider)(nil)

// StripeProvider talks to the Stripe API. The secret key is read on every
// call so a key rotated in the admin settings applies without a restart.
type StripeProvider struct {
	key func() string

	mu        sync.Mutex
	api       *client.API
	clientKey string
}

// NewStripeProvider creates a provider reading its secret key from key.
func NewStripeProvider(key func() string) *StripeProvider {
	return &StripeProvider{key: key}
}

func (p *StripeProvider) client() (*client.API, error) {
	key := p.key()
	if key == "" {
		return nil, ErrNotConfigured
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.api == nil || p.clientKey != key {
		cfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(stripeMaxNetworkRetries)}
		p.api = client.New(key, &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		})
		p.clientKey = key
	}
	return p.api, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotConfigured) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}

func (p *StripeProvider) EnsureCustomer(ctx context.Context, email, existingID string) (string, error) {
	sc, err := p.client()
	if err != nil {
		return "", err
	}
	if existingID != "" {
		params := &stripe.CustomerParams{}
		params.Context = ctx
		c, err := sc.Customers.Get(existingID, params)
		if err == nil && !c.Deleted {
			return c.ID, nil
		}
	}
	if id, err := p.FindCustomerByEmail(ctx, email); err != nil || id != "" {
		return id, err
	}
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.SetIdempotencyKey("customer:" + email)
	c, err := sc.Customers.New(params)
	if err != nil {
		return "", wrap("create customer", err)
	}
	return c.ID, nil
}

func (p *StripeProvider) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	sc, err := p.client()
	if err != nil {
		return "", err
	}
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	it := sc.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	return "", wrap("list customers", it.Err())
}

func (p *StripeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	sc, err := p.client()
	if err != nil {
		return err
	}
	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attach.Context = ctx
	if _, err := sc.PaymentMethods.Attach(paymentMethodID, attach); err != nil {
		return wrap("attach payment method", err)
	}
	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	update.Context = ctx
	_, err = sc.Customers.Update(customerID, update)
	return wrap("set default payment method", err)
}

func (p *StripeProvider) EnsureCoupon(ctx context.Context, spec CouponSpec) (string, error) {
	sc, err := p.client()
	if err != nil {
		return "", err
	}
	params := &stripe.CouponParams{
		ID:       stripe.String(spec.ID),
		Name:     stripe.String(spec.Name),
		Duration: stripe.String(spec.Duration),
	}
	if spec.AmountOff > 0 {
		params.AmountOff = stripe.Int64(spec.AmountOff)
		params.Currency = stripe.String(spec.Currency)
	} else {
		pct, _ := spec.PercentOff.Float64()
		params.PercentOff = stripe.Float64(pct)
	}
	params.Context = ctx
	c, err := sc.Coupons.New(params)
	if err == nil {
		return c.ID, nil
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceAlreadyExists {
		return spec.ID, nil
	}
	return "", wrap("create coupon", err)
}

func (p *StripeProvider) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*NormalizedSubscription, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	if req.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.CouponID != "" {
		params.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(req.CouponID)},
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	s, err := sc.Subscriptions.New(params)
	if err != nil {
		return nil, wrap("create subscription", err)
	}
	return normalizeStripeSubscription(s, nil), nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*NormalizedSubscription, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, wrap("get subscription", err)
	}
	return normalizeStripeSubscription(s, nil), nil
}

func (p *StripeProvider) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, priceID, idempotencyKey string) (*NormalizedSubscription, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	get := &stripe.SubscriptionParams{}
	get.Context = ctx
	current, err := sc.Subscriptions.Get(subscriptionID, get)
	if err != nil {
		return nil, wrap("get subscription", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, wrap("update subscription", errors.New("subscription has no items"))
	}
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(priceID)},
		},
		ProrationBehavior: stripe.String("create_prorations"),
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	s, err := sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, wrap("update subscription", err)
	}
	return normalizeStripeSubscription(s, nil), nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (*NormalizedSubscription, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	if immediate {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		s, err := sc.Subscriptions.Cancel(subscriptionID, params)
		if err != nil {
			return nil, wrap("cancel subscription", err)
		}
		return normalizeStripeSubscription(s, nil), nil
	}
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	s, err := sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, wrap("cancel subscription", err)
	}
	return normalizeStripeSubscription(s, nil), nil
}

func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string) ([]NormalizedSubscription, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	out := []NormalizedSubscription{}
	it := sc.Subscriptions.List(params)
	for it.Next() {
		out = append(out, *normalizeStripeSubscription(it.Subscription(), nil))
	}
	return out, wrap("list subscriptions", it.Err())
}

func (p *StripeProvider) ListInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.InvoiceListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))
	out := []Invoice{}
	it := sc.Invoices.List(params)
	for it.Next() && len(out) < limit {
		inv := it.Invoice()
		item := Invoice{
			ID:         inv.ID,
			Number:     inv.Number,
			Status:     string(inv.Status),
			Currency:   string(inv.Currency),
			AmountDue:  inv.AmountDue,
			AmountPaid: inv.AmountPaid,
			HostedURL:  inv.HostedInvoiceURL,
			PDFURL:     inv.InvoicePDF,
			Created:    time.Unix(inv.Created, 0).UTC(),
		}
		if inv.Subscription != nil {
			item.SubscriptionID = inv.Subscription.ID
		}
		out = append(out, item)
	}
	return out, wrap("list invoices", it.Err())
}

func (p *StripeProvider) ListProducts(ctx context.Context) ([]Product, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
		Type:   stripe.String(string(stripe.PriceTypeRecurring)),
	}
	params.AddExpand("data.product")
	params.Context = ctx
	out := []Product{}
	it := sc.Prices.List(params)
	for it.Next() {
		pr := it.Price()
		item := Product{
			PriceID:    pr.ID,
			UnitAmount: pr.UnitAmount,
			Currency:   string(pr.Currency),
		}
		if pr.Recurring != nil {
			item.Interval = string(pr.Recurring.Interval)
		}
		if pr.Product != nil {
			item.ID = pr.Product.ID
			item.Name = pr.Product.Name
			item.Description = pr.Product.Description
		}
		out = append(out, item)
	}
	return out, wrap("list prices", it.Err())
}

func (p *StripeProvider) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	sc, err := p.client()
	if err != nil {
		return nil, err
	}
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx
	out := []PaymentMethod{}
	it := sc.PaymentMethods.List(params)
	for it.Next() {
		pm := it.PaymentMethod()
		item := PaymentMethod{ID: pm.ID}
		if pm.Card != nil {
			item.Brand = string(pm.Card.Brand)
			item.Last4 = pm.Card.Last4
			item.ExpMonth = pm.Card.ExpMonth
			item.ExpYear = pm.Card.ExpYear
		}
		out = append(out, item)
	}
	return out, wrap("list payment methods", it.Err())
}

// normalizeStripeSubscription maps a Stripe subscription to the
// provider-neutral shape. raw is stored as-is when given.
func normalizeStripeSubscription(s *stripe.Subscription, raw []byte) *NormalizedSubscription {
	out := &NormalizedSubscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		out.PriceID = price.ID
		if price.Recurring != nil {
			out.Interval = string(price.Recurring.Interval)
		}
	}
	if s.CurrentPeriodStart > 0 {
		t := time.Unix(s.CurrentPeriodStart, 0).UTC()
		out.CurrentPeriodStart = &t
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	if s.LatestInvoice != nil && s.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = s.LatestInvoice.PaymentIntent.ClientSecret
	}
	if raw != nil {
		out.RawPayloadJSON = string(raw)
	} else if b, err := json.Marshal(s); err == nil {
		out.RawPayloadJSON = string(b)
	}
	return out
}
