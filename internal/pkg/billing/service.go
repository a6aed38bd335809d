package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/editor"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
)

// Service orchestrates subscriptions between the payment provider and the
// page records. Every mutation of a subscription holds a per-key lock.
type Service struct {
	repo      Repository
	pages     repository.PageRepository
	users     repository.UserRepository
	discounts repository.DiscountCodeRepository
	provider  Provider
	locker    Locker
	prices    PriceTable
	secret    func() string
	now       func() time.Time
}

// Dependencies wires a Service. Nil Locker falls back to an in-process lock.
type Dependencies struct {
	Repo      Repository
	Pages     repository.PageRepository
	Users     repository.UserRepository
	Discounts repository.DiscountCodeRepository
	Provider  Provider
	Locker    Locker
	Prices    PriceTable
	// WebhookSecret returns the current signing secret.
	WebhookSecret func() string
	Now           func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(deps Dependencies) *Service {
	s := &Service{
		repo:      deps.Repo,
		pages:     deps.Pages,
		users:     deps.Users,
		discounts: deps.Discounts,
		provider:  deps.Provider,
		locker:    deps.Locker,
		prices:    deps.Prices,
		secret:    deps.WebhookSecret,
		now:       deps.Now,
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.prices == nil {
		s.prices = PriceTable{}
	}
	if s.secret == nil {
		s.secret = func() string { return "" }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewServiceFromDB creates a billing service whose repositories share db.
func NewServiceFromDB(db *gorm.DB, provider Provider, locker Locker, prices PriceTable, webhookSecret func() string) *Service {
	return NewService(Dependencies{
		Repo:          NewRepository(db),
		Pages:         repository.NewPageRepository(db),
		Users:         repository.NewUserRepository(db),
		Discounts:     repository.NewDiscountCodeRepository(db),
		Provider:      provider,
		Locker:        locker,
		Prices:        prices,
		WebhookSecret: webhookSecret,
	})
}

// ResolveMappedPlan resolves a provider price id to an internal plan.
func (s *Service) ResolveMappedPlan(ctx context.Context, priceID string) (plan, interval string, err error) {
	_ = ctx
	ref := strings.TrimSpace(priceID)
	if ref == "" {
		return string(entitlements.PlanFree), models.BillingIntervalUnknown, gorm.ErrRecordNotFound
	}
	m, err := s.repo.FindPlanMappingByRef(models.BillingProviderStripe, ref)
	if err == nil {
		return normalizePlan(m.InternalPlan), m.BillingInterval, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", err
	}
	if p, i, ok := s.prices.PlanFor(ref); ok {
		return p, i, nil
	}
	return string(entitlements.PlanFree), models.BillingIntervalUnknown, gorm.ErrRecordNotFound
}

// ListPlanMappings returns all Stripe price mappings.
func (s *Service) ListPlanMappings(ctx context.Context) ([]models.BillingPlanMapping, error) {
	_ = ctx
	return s.repo.ListPlanMappings(models.BillingProviderStripe)
}

// SavePlanMapping creates or updates the plan a Stripe price grants.
func (s *Service) SavePlanMapping(ctx context.Context, m *models.BillingPlanMapping) error {
	_ = ctx
	m.Provider = models.BillingProviderStripe
	m.ProviderPlanRef = strings.TrimSpace(m.ProviderPlanRef)
	m.InternalPlan = strings.ToLower(strings.TrimSpace(m.InternalPlan))
	m.BillingInterval = normalizeInterval(m.BillingInterval)
	if err := validator.New().Struct(m); err != nil {
		return err
	}
	return s.repo.UpsertPlanMapping(m)
}

// resolvePrice finds the price to charge for plan and interval.
func (s *Service) resolvePrice(plan, interval string) (string, error) {
	m, err := s.repo.FindPlanMappingForPlan(models.BillingProviderStripe, plan, interval)
	if err == nil {
		return m.ProviderPlanRef, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if p, ok := s.prices.Lookup(plan, interval); ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnknownPrice, plan, interval)
}

// ValidateDiscount loads a code and checks it can be used for plan now.
func (s *Service) ValidateDiscount(ctx context.Context, code, plan string) (*models.DiscountCode, error) {
	_ = ctx
	dc, err := s.discounts.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidDiscountCode
		}
		return nil, err
	}
	if err := dc.CheckRedeemable(plan, s.now()); err != nil {
		return dc, fmt.Errorf("%w: %w", ErrInvalidDiscountCode, err)
	}
	return dc, nil
}

// CreateSubscription starts a paid plan. The page is activated later, when
// the first invoice is paid.
func (s *Service) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*CreateSubscriptionResult, error) {
	email := models.NormalizeEmail(in.Email)
	plan := normalizePlan(in.Plan)
	interval := normalizeInterval(in.Interval)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if !isPaidPlan(plan) || !strings.EqualFold(strings.TrimSpace(in.Plan), plan) {
		return nil, ErrInvalidPlan
	}
	if interval == models.BillingIntervalUnknown {
		return nil, fmt.Errorf("%w: interval %q", ErrInvalidPlan, in.Interval)
	}

	unlock, err := s.locker.Lock(ctx, "create:"+email)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.users.EnsureUser(in.UserID, email)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	page, slug, err := s.checkoutTarget(user.ID, in.PageID, in.Slug)
	if err != nil {
		return nil, err
	}
	if page != nil {
		if isPaidPlan(page.SubscriptionPlan) {
			return nil, ErrAlreadySubscribed
		}
		if _, err := Transition(StateOf(page), EventActivate, plan); err != nil {
			return nil, err
		}
	}

	priceID, err := s.resolvePrice(plan, interval)
	if err != nil {
		return nil, err
	}

	var discount *models.DiscountCode
	if strings.TrimSpace(in.DiscountCode) != "" {
		discount, err = s.ValidateDiscount(ctx, in.DiscountCode, plan)
		if err != nil {
			return nil, err
		}
	}

	customerID, err := s.provider.EnsureCustomer(ctx, email, user.StripeCustomerID)
	if err != nil {
		return nil, err
	}
	if customerID != user.StripeCustomerID {
		if err := s.users.SetStripeCustomerID(user.ID, customerID); err != nil {
			return nil, err
		}
	}

	if in.PaymentMethodID != "" {
		if err := s.provider.AttachPaymentMethod(ctx, customerID, in.PaymentMethodID); err != nil {
			return nil, err
		}
	}

	couponID := ""
	if discount != nil {
		couponID, err = s.couponFor(ctx, discount)
		if err != nil {
			return nil, err
		}
	}

	pageID, previous := "", ""
	if page != nil {
		pageID, slug, previous = page.ID, page.Slug, page.StripeSubscriptionID
	}
	metadata := map[string]string{
		"user_id": user.ID,
		"plan":    plan,
		"page_id": pageID,
		"slug":    slug,
	}
	if discount != nil {
		metadata["discount_code"] = discount.Code
	}

	sub, err := s.provider.CreateSubscription(ctx, SubscriptionRequest{
		CustomerID:      customerID,
		PriceID:         priceID,
		PaymentMethodID: in.PaymentMethodID,
		CouponID:        couponID,
		Metadata:        metadata,
		IdempotencyKey: checkoutKey(email, plan, interval, pageID, slug, in.PaymentMethodID, couponID,
			previous, in.RequestID),
	})
	if err != nil {
		return nil, err
	}

	mirror := &models.BillingSubscription{
		UserID:                 user.ID,
		PageID:                 pageID,
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: sub.ID,
		ProviderCustomerID:     customerID,
		ProviderPlanRef:        priceID,
		InternalPlan:           plan,
		BillingInterval:        interval,
		Status:                 sub.Status,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		RawPayloadJSON:         sub.RawPayloadJSON,
	}
	if discount != nil {
		mirror.DiscountCode = discount.Code
	}
	if err := s.repo.UpsertSubscription(mirror); err != nil {
		log.Errorf("[Billing] failed to mirror subscription %s: %v", sub.ID, err)
	}

	log.Infof("[Billing] created subscription %s for %s (%s/%s)", sub.ID, email, plan, interval)
	return &CreateSubscriptionResult{
		SubscriptionID: sub.ID,
		CustomerID:     customerID,
		ClientSecret:   sub.ClientSecret,
		Status:         sub.Status,
	}, nil
}

// checkoutTarget resolves the page a checkout pays for. A new page is given
// by slug, which must be valid and free. A slug the user already owns targets
// that page.
func (s *Service) checkoutTarget(userID, pageID, rawSlug string) (*models.LynqitPage, string, error) {
	if pageID != "" {
		page, err := s.pages.GetByID(pageID)
		if err != nil {
			return nil, "", err
		}
		if page.UserID != userID {
			return nil, "", ErrPageNotOwned
		}
		return page, page.Slug, nil
	}
	slug := editor.NormalizeSlug(rawSlug)
	if err := editor.ValidateSlug(slug); err != nil {
		return nil, "", err
	}
	taken, err := s.pages.SlugExists(slug)
	if err != nil {
		return nil, "", err
	}
	if !taken {
		return nil, slug, nil
	}
	page, err := s.pages.GetBySlug(slug)
	if err != nil {
		return nil, "", err
	}
	if page.UserID != userID {
		return nil, "", repository.ErrSlugTaken
	}
	return page, slug, nil
}

// checkoutKey identifies one checkout attempt. A new card, another coupon or
// a fresh request id is a new attempt; a repeated submit is not.
func checkoutKey(email, plan, interval, pageID, slug, paymentMethodID, couponID, previous, requestID string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		email, plan, interval, pageID, slug, paymentMethodID, couponID, previous, strings.TrimSpace(requestID),
	}, "\x00")))
	return "create:" + hex.EncodeToString(sum[:16])
}

func (s *Service) couponFor(ctx context.Context, dc *models.DiscountCode) (string, error) {
	spec := CouponSpecFor(dc)
	if dc.StripeCouponID == spec.ID {
		return spec.ID, nil
	}
	id, err := s.provider.EnsureCoupon(ctx, spec)
	if err != nil {
		return "", err
	}
	if err := s.discounts.SetStripeCouponID(dc.ID, id); err != nil {
		log.Warnf("[Billing] failed to cache coupon %s on code %s: %v", id, dc.Code, err)
	}
	return id, nil
}

// UpdateSubscription swaps the subscription to newPriceID with proration and
// moves the page to the mapped plan.
func (s *Service) UpdateSubscription(ctx context.Context, subscriptionID, newPriceID, pageID string) (*models.LynqitPage, error) {
	if subscriptionID == "" || newPriceID == "" {
		return nil, errors.New("subscription id and price id are required")
	}
	plan, interval, err := s.ResolveMappedPlan(ctx, newPriceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPrice, newPriceID)
		}
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, "sub:"+subscriptionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	page, err := s.pageForSubscription(subscriptionID, pageID)
	if err != nil {
		return nil, err
	}
	next, err := Transition(StateOf(page), EventChangePlan, plan)
	if err != nil {
		return nil, err
	}

	sub, err := s.provider.UpdateSubscriptionPrice(ctx, subscriptionID, newPriceID, fmt.Sprintf("update:%s:%s", subscriptionID, newPriceID))
	if err != nil {
		return nil, err
	}

	if err := s.applyState(page, next, sub); err != nil {
		return nil, err
	}
	s.mirror(page, sub, plan, interval)
	log.Infof("[Billing] subscription %s moved to %s", subscriptionID, plan)
	return s.pages.GetByID(page.ID)
}

// CancelSubscription cancels at period end, or right away when immediate.
// The page keeps its plan until the subscription ends.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID, pageID string, immediate bool) (*models.LynqitPage, error) {
	if subscriptionID == "" {
		return nil, errors.New("subscription id is required")
	}
	unlock, err := s.locker.Lock(ctx, "sub:"+subscriptionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	page, err := s.pageForSubscription(subscriptionID, pageID)
	if err != nil {
		return nil, err
	}
	next, err := Transition(StateOf(page), EventCancel, "")
	if err != nil {
		return nil, err
	}

	sub, err := s.provider.CancelSubscription(ctx, subscriptionID, immediate)
	if err != nil {
		return nil, err
	}
	if immediate {
		// the sweep demotes the page if the deletion webhook never arrives
		now := s.now()
		sub.CurrentPeriodEnd = &now
	}

	if err := s.applyState(page, next, sub); err != nil {
		return nil, err
	}
	s.mirror(page, sub, page.SubscriptionPlan, "")
	log.Infof("[Billing] subscription %s cancelled (immediate=%t)", subscriptionID, immediate)
	return s.pages.GetByID(page.ID)
}

// CancelForDeletion cancels the active subscription of a page that is about
// to be deleted. Pages without a paid subscription need nothing.
func (s *Service) CancelForDeletion(ctx context.Context, page *models.LynqitPage) error {
	if page.StripeSubscriptionID == "" || !isPaidPlan(page.SubscriptionPlan) {
		return nil
	}
	unlock, err := s.locker.Lock(ctx, "sub:"+page.StripeSubscriptionID)
	if err != nil {
		return err
	}
	defer unlock()
	_, err = s.provider.CancelSubscription(ctx, page.StripeSubscriptionID, true)
	return err
}

// ExpireCancelled demotes pages whose cancelled subscription ran past its
// period end. It returns the number of demoted pages.
func (s *Service) ExpireCancelled(ctx context.Context, limit int) (int, error) {
	pages, err := s.pages.ListExpiredCancellations(s.now(), limit)
	if err != nil {
		return 0, err
	}
	demoted := 0
	for i := range pages {
		page := &pages[i]
		if err := s.expirePage(ctx, page); err != nil {
			log.Warnf("[Billing] could not expire page %s: %v", page.ID, err)
			continue
		}
		demoted++
	}
	return demoted, nil
}

func (s *Service) expirePage(ctx context.Context, page *models.LynqitPage) error {
	key := "page:" + page.ID
	if page.StripeSubscriptionID != "" {
		key = "sub:" + page.StripeSubscriptionID
	}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	next, err := Transition(StateOf(page), EventExpire, "")
	if err != nil {
		return err
	}
	return s.pages.UpdateBilling(page.ID, repository.BillingState{
		Plan:   next.Plan,
		Status: models.PageStatusExpired,
	})
}

// FindByEmail lists the provider subscriptions of the customer with email.
func (s *Service) FindByEmail(ctx context.Context, email string) ([]NormalizedSubscription, error) {
	customerID, err := s.customerID(ctx, email)
	if err != nil || customerID == "" {
		return []NormalizedSubscription{}, err
	}
	subs, err := s.provider.ListSubscriptions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].RawPayloadJSON = ""
	}
	return subs, nil
}

// ListInvoices returns the most recent invoices of the customer with email.
func (s *Service) ListInvoices(ctx context.Context, email string, limit int) ([]Invoice, error) {
	customerID, err := s.customerID(ctx, email)
	if err != nil || customerID == "" {
		return []Invoice{}, err
	}
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	return s.provider.ListInvoices(ctx, customerID, limit)
}

// ListProducts returns active recurring prices annotated with their plan.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.provider.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if plan, _, err := s.ResolveMappedPlan(ctx, products[i].PriceID); err == nil {
			products[i].Plan = plan
		}
	}
	return products, nil
}

// ListPaymentMethods returns the saved cards of the customer with email.
func (s *Service) ListPaymentMethods(ctx context.Context, email string) ([]PaymentMethod, error) {
	customerID, err := s.customerID(ctx, email)
	if err != nil || customerID == "" {
		return []PaymentMethod{}, err
	}
	return s.provider.ListPaymentMethods(ctx, customerID)
}

// customerID prefers the stored customer and falls back to a provider lookup.
func (s *Service) customerID(ctx context.Context, email string) (string, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return "", errors.New("email is required")
	}
	user, err := s.users.GetByEmail(email)
	if err == nil && user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	return s.provider.FindCustomerByEmail(ctx, email)
}

func (s *Service) pageForSubscription(subscriptionID, pageID string) (*models.LynqitPage, error) {
	if pageID != "" {
		page, err := s.pages.GetByID(pageID)
		if err != nil {
			return nil, err
		}
		if page.StripeSubscriptionID != "" && page.StripeSubscriptionID != subscriptionID {
			return nil, ErrPageNotOwned
		}
		return page, nil
	}
	page, err := s.pages.GetByStripeSubscriptionID(subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionMissing
	}
	return page, err
}

func (s *Service) applyState(page *models.LynqitPage, next State, sub *NormalizedSubscription) error {
	state := repository.BillingState{
		Plan:              next.Plan,
		Status:            next.PageStatus(),
		CancelAtPeriodEnd: next.CancelAtPeriodEnd,
		CurrentPeriodEnd:  page.CurrentPeriodEnd,
	}
	if sub != nil {
		state.StripeSubscriptionID = sub.ID
		state.StripeCustomerID = sub.CustomerID
		if sub.CurrentPeriodEnd != nil {
			state.CurrentPeriodEnd = sub.CurrentPeriodEnd
		}
	}
	return s.pages.UpdateBilling(page.ID, state)
}

// mirror records the provider view of a subscription. Failures are logged;
// the page record is the source of truth for entitlements.
func (s *Service) mirror(page *models.LynqitPage, sub *NormalizedSubscription, plan, interval string) {
	if sub == nil || sub.ID == "" {
		return
	}
	if interval == "" {
		interval = sub.Interval
	}
	m := &models.BillingSubscription{
		UserID:                 page.UserID,
		PageID:                 page.ID,
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: sub.ID,
		ProviderCustomerID:     sub.CustomerID,
		ProviderPlanRef:        sub.PriceID,
		InternalPlan:           normalizePlan(plan),
		BillingInterval:        normalizeInterval(interval),
		Status:                 sub.Status,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		RawPayloadJSON:         sub.RawPayloadJSON,
	}
	if err := s.repo.UpsertSubscription(m); err != nil {
		log.Errorf("[Billing] failed to mirror subscription %s: %v", sub.ID, err)
	}
}
