package billing

import "context"

// Provider is the payment provider surface the service depends on.
type Provider interface {
	EnsureCustomer(ctx context.Context, email, existingID string) (string, error)
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	EnsureCoupon(ctx context.Context, spec CouponSpec) (string, error)

	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*NormalizedSubscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*NormalizedSubscription, error)
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID, priceID, idempotencyKey string) (*NormalizedSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (*NormalizedSubscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]NormalizedSubscription, error)

	ListInvoices(ctx context.Context, customerID string, limit int) ([]Invoice, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
}
