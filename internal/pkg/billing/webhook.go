package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/editor"
)

const (
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
)

// errSkipEvent marks an event that is stored but changes nothing.
var errSkipEvent = errors.New("event does not apply")

// HandleWebhook verifies, deduplicates and applies one provider event.
// A returned error means the provider should deliver the event again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	secret := s.secret()
	if secret == "" {
		return nil, ErrNotConfigured
	}
	if err := VerifyStripeSignature(payload, signatureHeader, secret, s.now(), DefaultSignatureTolerance); err != nil {
		return nil, err
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	result := &WebhookResult{EventID: event.ID, EventType: string(event.Type)}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Infof("[Billing] duplicate webhook %s (%s) acknowledged", event.ID, event.Type)
		result.Duplicate = true
		return result, nil
	}

	procErr := s.dispatch(ctx, &event)
	var slugErr *editor.ValidationError
	switch {
	case procErr == nil:
		result.Handled = true
		return result, s.MarkWebhookProcessed(ctx, stored.ID, nil)
	case errors.Is(procErr, errSkipEvent):
		return result, s.MarkWebhookProcessed(ctx, stored.ID, nil)
	case errors.Is(procErr, ErrInvalidTransition):
		// retrying cannot fix the state; keep the reason for admins
		log.Warnf("[Billing] webhook %s ignored: %v", event.ID, procErr)
		return result, s.MarkWebhookProcessed(ctx, stored.ID, procErr)
	case errors.Is(procErr, ErrPageNotOwned), errors.As(procErr, &slugErr):
		// paid, but the page cannot be created; needs a manual refund or move
		log.Errorf("[Billing] webhook %s needs manual follow-up: %v", event.ID, procErr)
		return result, s.MarkWebhookProcessed(ctx, stored.ID, procErr)
	default:
		log.Errorf("[Billing] webhook %s (%s) failed: %v", event.ID, event.Type, procErr)
		if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
			log.Errorf("[Billing] failed to mark webhook %s: %v", event.ID, err)
		}
		return result, procErr
	}
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	if event.Data == nil {
		return errSkipEvent
	}
	switch string(event.Type) {
	case EventInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.handlePaymentSucceeded(ctx, &inv)
	case EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		subID := ""
		if inv.Subscription != nil {
			subID = inv.Subscription.ID
		}
		log.Warnf("[Billing] payment failed for invoice %s (subscription %s)", inv.ID, subID)
		return nil
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var raw stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &raw); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		sub := normalizeStripeSubscription(&raw, event.Data.Raw)
		if string(event.Type) == EventSubscriptionDeleted {
			return s.handleSubscriptionDeleted(ctx, sub)
		}
		return s.handleSubscriptionUpdated(ctx, sub)
	default:
		return errSkipEvent
	}
}

// handlePaymentSucceeded activates the page a paid subscription belongs to.
// Replays leave the page and the discount usage unchanged.
func (s *Service) handlePaymentSucceeded(ctx context.Context, inv *stripe.Invoice) error {
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return errSkipEvent
	}
	subID := inv.Subscription.ID

	unlock, err := s.locker.Lock(ctx, "sub:"+subID)
	if err != nil {
		return err
	}
	defer unlock()

	sub, err := s.provider.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	plan, interval, err := s.ResolveMappedPlan(ctx, sub.PriceID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plan = normalizePlan(sub.Metadata["plan"])
		interval = sub.Interval
	}
	if !isPaidPlan(plan) {
		return fmt.Errorf("%w: %s", ErrUnknownPrice, sub.PriceID)
	}

	page, err := s.pageForActivation(sub)
	if err != nil {
		return err
	}

	next, err := Transition(StateOf(page), EventActivate, plan)
	if err != nil {
		return err
	}
	if err := s.applyState(page, next, sub); err != nil {
		return err
	}

	code := sub.Metadata["discount_code"]
	if code != "" {
		if err := s.redeem(code, sub.ID, page.ID); err != nil {
			return err
		}
	}

	s.mirror(page, sub, plan, interval)
	if code != "" {
		if m, err := s.repo.GetSubscription(models.BillingProviderStripe, sub.ID); err == nil && m.DiscountCode == "" {
			m.DiscountCode = models.NormalizeDiscountCode(code)
			if err := s.repo.UpsertSubscription(m); err != nil {
				log.Warnf("[Billing] failed to store discount on %s: %v", sub.ID, err)
			}
		}
	}
	log.Infof("[Billing] page %s active on %s via %s", page.Slug, plan, sub.ID)
	return nil
}

// redeem counts a discount code once per subscription. A deleted code is
// skipped; storage errors are returned so the event is delivered again.
func (s *Service) redeem(code, subscriptionID, pageID string) error {
	dc, err := s.discounts.GetByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] discount code %s not found for %s", code, subscriptionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load discount code %s: %w", code, err)
	}
	counted, err := s.discounts.RedeemOnce(dc.ID, subscriptionID, pageID)
	if err != nil {
		return fmt.Errorf("redeem %s for %s: %w", dc.Code, subscriptionID, err)
	}
	if counted {
		log.Infof("[Billing] discount code %s redeemed by %s", dc.Code, subscriptionID)
	}
	return nil
}

// pageForActivation finds the page a subscription pays for, creating it
// from the checkout metadata when the customer bought a new page.
func (s *Service) pageForActivation(sub *NormalizedSubscription) (*models.LynqitPage, error) {
	if id := sub.Metadata["page_id"]; id != "" {
		page, err := s.pages.GetByID(id)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
	page, err := s.pages.GetByStripeSubscriptionID(sub.ID)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	slug := editor.NormalizeSlug(sub.Metadata["slug"])
	userID := sub.Metadata["user_id"]
	if slug == "" || userID == "" {
		return nil, fmt.Errorf("%w: %s carries no page reference", ErrSubscriptionMissing, sub.ID)
	}
	if err := editor.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("subscription %s: slug %q: %w", sub.ID, slug, err)
	}
	page = models.NewLynqitPage(userID, slug)
	err = s.pages.Create(page)
	if errors.Is(err, repository.ErrSlugTaken) {
		existing, gerr := s.pages.GetBySlug(slug)
		if gerr != nil {
			return nil, gerr
		}
		if existing.UserID != userID {
			return nil, fmt.Errorf("%w: slug %s", ErrPageNotOwned, slug)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	log.Infof("[Billing] created page %s for subscription %s", slug, sub.ID)
	return page, nil
}

// handleSubscriptionUpdated follows plan swaps and cancel or resume requests
// made outside the dashboard.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, sub *NormalizedSubscription) error {
	unlock, err := s.locker.Lock(ctx, "sub:"+sub.ID)
	if err != nil {
		return err
	}
	defer unlock()

	page, err := s.pages.GetByStripeSubscriptionID(sub.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// not activated yet; the paid invoice will do it
		return errSkipEvent
	}
	if err != nil {
		return err
	}

	if !isEntitlingStatus(sub.Status) {
		if sub.Status == models.BillingStatusIncomplete {
			s.mirror(page, sub, page.SubscriptionPlan, "")
			return errSkipEvent
		}
		return s.expireForSubscription(page, sub)
	}

	state := StateOf(page)
	if sub.CancelAtPeriodEnd && !state.CancelAtPeriodEnd {
		if state, err = Transition(state, EventCancel, ""); err != nil {
			return err
		}
	}
	if !sub.CancelAtPeriodEnd && state.CancelAtPeriodEnd {
		if state, err = Transition(state, EventResume, ""); err != nil {
			return err
		}
	}

	plan, interval, err := s.ResolveMappedPlan(ctx, sub.PriceID)
	switch {
	case err == nil:
		if plan != state.Plan && !state.CancelAtPeriodEnd {
			if state, err = Transition(state, EventChangePlan, plan); err != nil {
				return err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		plan, interval = state.Plan, sub.Interval
	default:
		return err
	}

	if err := s.applyState(page, state, sub); err != nil {
		return err
	}
	s.mirror(page, sub, plan, interval)
	return nil
}

// handleSubscriptionDeleted demotes the page once the subscription ended.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *NormalizedSubscription) error {
	unlock, err := s.locker.Lock(ctx, "sub:"+sub.ID)
	if err != nil {
		return err
	}
	defer unlock()

	page, err := s.pages.GetByStripeSubscriptionID(sub.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errSkipEvent
	}
	if err != nil {
		return err
	}
	return s.expireForSubscription(page, sub)
}

func (s *Service) expireForSubscription(page *models.LynqitPage, sub *NormalizedSubscription) error {
	s.mirror(page, sub, page.SubscriptionPlan, "")
	if !isPaidPlan(page.SubscriptionPlan) {
		return errSkipEvent
	}
	next, err := Transition(StateOf(page), EventExpire, "")
	if err != nil {
		return err
	}
	if err := s.pages.UpdateBilling(page.ID, repository.BillingState{
		Plan:             next.Plan,
		Status:           models.PageStatusExpired,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}); err != nil {
		return err
	}
	log.Infof("[Billing] page %s expired after subscription %s ended", page.Slug, sub.ID)
	return nil
}

// RecordWebhookEvent persists a webhook event idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
