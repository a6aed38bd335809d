package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/billing"
	"github.com/lynqit/lynqit/internal/pkg/editor"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
)

const (
	providerTimeout     = 20 * time.Second
	defaultInvoiceLimit = 24
	maxInvoiceLimit     = 100
)

// BillingController serves the Stripe checkout, subscription management and
// webhook endpoints.
type BillingController struct {
	billing BillingService
	pages   repository.PageRepository
}

// NewBillingController creates a new billing controller
func NewBillingController(billing BillingService, pages repository.PageRepository) *BillingController {
	return &BillingController{billing: billing, pages: pages}
}

type createPaymentRequest struct {
	Plan            string `json:"plan"`
	Interval        string `json:"interval"`
	PaymentMethodID string `json:"paymentMethodId"`
	DiscountCode    string `json:"discountCode"`
	PageID          string `json:"pageId"`
	Slug            string `json:"slug"`
}

type updateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
	PageID         string `json:"pageId"`
}

type cancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	PageID         string `json:"pageId"`
	Immediate      bool   `json:"immediate"`
}

// HandleCreatePayment starts a paid subscription for the caller.
func (bc *BillingController) HandleCreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	if strings.TrimSpace(req.Plan) == "" {
		return badRequest(c, "Kies een abonnement")
	}
	if req.PageID == "" && strings.TrimSpace(req.Slug) == "" {
		return badRequest(c, "Een pagina of URL is verplicht")
	}
	if req.PageID != "" {
		page, err := bc.pages.GetByID(req.PageID)
		if err != nil {
			if repository.IsNotFound(err) {
				return respondError(c, errPageNotFound)
			}
			return respondError(c, err)
		}
		if !canAccessPage(c, page) {
			return forbidden(c)
		}
	}

	uc := usercontext.GetUserContext(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()

	res, err := bc.billing.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		UserID:          uc.UserID,
		Email:           uc.Email,
		Plan:            req.Plan,
		Interval:        req.Interval,
		PaymentMethodID: req.PaymentMethodID,
		DiscountCode:    req.DiscountCode,
		PageID:          req.PageID,
		Slug:            req.Slug,
		RequestID:       c.Get("Idempotency-Key"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// HandleUpdateSubscription moves a subscription to another price.
func (bc *BillingController) HandleUpdateSubscription(c *fiber.Ctx) error {
	var req updateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	if req.SubscriptionID == "" || req.NewPriceID == "" {
		return badRequest(c, "subscriptionId en newPriceId zijn verplicht")
	}
	if err := bc.authorizeSubscription(c, req.SubscriptionID, req.PageID); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()
	page, err := bc.billing.UpdateSubscription(ctx, req.SubscriptionID, req.NewPriceID, req.PageID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "page": newPageResponse(page)})
}

// HandleCancelSubscription cancels at period end, or now with immediate.
func (bc *BillingController) HandleCancelSubscription(c *fiber.Ctx) error {
	var req cancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	if req.SubscriptionID == "" {
		return badRequest(c, "subscriptionId is verplicht")
	}
	if err := bc.authorizeSubscription(c, req.SubscriptionID, req.PageID); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()
	page, err := bc.billing.CancelSubscription(ctx, req.SubscriptionID, req.PageID, req.Immediate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "page": newPageResponse(page)})
}

// HandleFindByEmail lists the Stripe subscriptions of the caller.
func (bc *BillingController) HandleFindByEmail(c *fiber.Ctx) error {
	email, err := bc.targetEmail(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()

	subs, err := bc.billing.FindByEmail(ctx, email)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		out = append(out, fiber.Map{
			"id":                s.ID,
			"customerId":        s.CustomerID,
			"status":            s.Status,
			"priceId":           s.PriceID,
			"interval":          s.Interval,
			"currentPeriodEnd":  s.CurrentPeriodEnd,
			"cancelAtPeriodEnd": s.CancelAtPeriodEnd,
			"pageId":            s.Metadata["page_id"],
			"plan":              s.Metadata["plan"],
		})
	}
	return c.JSON(fiber.Map{"subscriptions": out})
}

// HandleInvoices lists recent invoices of the caller.
func (bc *BillingController) HandleInvoices(c *fiber.Ctx) error {
	email, err := bc.targetEmail(c)
	if err != nil {
		return respondError(c, err)
	}
	limit := c.QueryInt("limit", defaultInvoiceLimit)
	if limit < 1 || limit > maxInvoiceLimit {
		limit = defaultInvoiceLimit
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()

	invoices, err := bc.billing.ListInvoices(ctx, email, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

// HandleProducts lists the purchasable prices.
func (bc *BillingController) HandleProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()

	products, err := bc.billing.ListProducts(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

// HandlePaymentMethods lists the saved cards of the caller.
func (bc *BillingController) HandlePaymentMethods(c *fiber.Ctx) error {
	email, err := bc.targetEmail(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), providerTimeout)
	defer cancel()

	methods, err := bc.billing.ListPaymentMethods(ctx, email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"paymentMethods": methods})
}

// HandleWebhook applies a signed Stripe event. Errors other than a bad
// signature answer 500 so Stripe redelivers.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	signature := c.Get("Stripe-Signature")

	res, err := bc.billing.HandleWebhook(c.UserContext(), payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			log.Warnf("[Billing] webhook with invalid signature from %s", GetClientIP(c))
			return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Ongeldige handtekening")
		case errors.Is(err, billing.ErrNotConfigured):
			return respondError(c, err)
		}
		log.Errorf("[Billing] webhook processing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_failed", "Verwerking mislukt")
	}
	return c.JSON(fiber.Map{
		"received":  true,
		"eventId":   res.EventID,
		"duplicate": res.Duplicate,
		"handled":   res.Handled,
	})
}

// authorizeSubscription checks the caller owns the page the subscription
// pays for. Admins may act on any subscription.
func (bc *BillingController) authorizeSubscription(c *fiber.Ctx, subscriptionID, pageID string) error {
	if usercontext.IsAdmin(c) {
		return nil
	}
	page, err := bc.pages.GetByStripeSubscriptionID(subscriptionID)
	if err != nil && repository.IsNotFound(err) && pageID != "" {
		page, err = bc.pages.GetByID(pageID)
	}
	if err != nil {
		if repository.IsNotFound(err) {
			return billing.ErrSubscriptionMissing
		}
		return err
	}
	if page.UserID != usercontext.GetUserID(c) {
		return errAccessDenied
	}
	return nil
}

// targetEmail is the caller's e-mail; admins may look up another customer
// with ?email=.
func (bc *BillingController) targetEmail(c *fiber.Ctx) (string, error) {
	if q := strings.TrimSpace(c.Query("email")); q != "" && usercontext.IsAdmin(c) {
		return q, nil
	}
	email := usercontext.GetEmail(c)
	if email == "" {
		return "", &editor.ValidationError{Field: "email", Message: "Geen e-mailadres bekend voor dit account"}
	}
	return email, nil
}
