package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/analytics"
	"github.com/lynqit/lynqit/internal/pkg/billing"
	"github.com/lynqit/lynqit/internal/pkg/database/dbtest"
	"github.com/lynqit/lynqit/internal/pkg/render"
	"github.com/lynqit/lynqit/internal/pkg/statistics"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeBilling struct {
	createIn      billing.CreateSubscriptionInput
	createErr     error
	cancelled     []string
	cancelErr     error
	deletionCalls int
	discount      *models.DiscountCode
	discountErr   error
	webhookErr    error
	mappings      []models.BillingPlanMapping
}

func (f *fakeBilling) CreateSubscription(ctx context.Context, in billing.CreateSubscriptionInput) (*billing.CreateSubscriptionResult, error) {
	f.createIn = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &billing.CreateSubscriptionResult{SubscriptionID: "sub_1", CustomerID: "cus_1", ClientSecret: "pi_secret", Status: "incomplete"}, nil
}

func (f *fakeBilling) UpdateSubscription(ctx context.Context, subscriptionID, newPriceID, pageID string) (*models.LynqitPage, error) {
	return models.NewLynqitPage("user-1", "bijgewerkt"), nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, subscriptionID, pageID string, immediate bool) (*models.LynqitPage, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	f.cancelled = append(f.cancelled, subscriptionID)
	p := models.NewLynqitPage("user-1", "opgezegd")
	p.CancelAtPeriodEnd = true
	return p, nil
}

func (f *fakeBilling) CancelForDeletion(ctx context.Context, page *models.LynqitPage) error {
	f.deletionCalls++
	return nil
}

func (f *fakeBilling) FindByEmail(ctx context.Context, email string) ([]billing.NormalizedSubscription, error) {
	return []billing.NormalizedSubscription{{ID: "sub_1", Status: "active", Metadata: map[string]string{"page_id": "p1", "plan": "pro"}}}, nil
}

func (f *fakeBilling) ListInvoices(ctx context.Context, email string, limit int) ([]billing.Invoice, error) {
	return []billing.Invoice{{ID: "in_1", Status: "paid"}}, nil
}

func (f *fakeBilling) ListProducts(ctx context.Context) ([]billing.Product, error) {
	return nil, &billing.ProviderError{Op: "prices.list", Err: io.ErrUnexpectedEOF}
}

func (f *fakeBilling) ListPaymentMethods(ctx context.Context, email string) ([]billing.PaymentMethod, error) {
	return []billing.PaymentMethod{}, nil
}

func (f *fakeBilling) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*billing.WebhookResult, error) {
	if f.webhookErr != nil {
		return nil, f.webhookErr
	}
	return &billing.WebhookResult{EventID: "evt_1", EventType: billing.EventSubscriptionUpdated, Handled: true}, nil
}

func (f *fakeBilling) ValidateDiscount(ctx context.Context, code, plan string) (*models.DiscountCode, error) {
	return f.discount, f.discountErr
}

func (f *fakeBilling) ListPlanMappings(ctx context.Context) ([]models.BillingPlanMapping, error) {
	return f.mappings, nil
}

func (f *fakeBilling) SavePlanMapping(ctx context.Context, m *models.BillingPlanMapping) error {
	f.mappings = append(f.mappings, *m)
	return nil
}

type fakeRecorder struct {
	views  []analytics.PageviewEvent
	clicks []analytics.ClickEvent
}

func (f *fakeRecorder) RecordPageview(ctx context.Context, ev analytics.PageviewEvent) error {
	if ev.PageID == "" {
		return analytics.ErrMissingPageID
	}
	f.views = append(f.views, ev)
	return nil
}

func (f *fakeRecorder) RecordClick(ctx context.Context, ev analytics.ClickEvent) error {
	if ev.PageID == "" {
		return analytics.ErrMissingPageID
	}
	if ev.ClickType == "" {
		return analytics.ErrMissingClickType
	}
	f.clicks = append(f.clicks, ev)
	return nil
}

func (f *fakeRecorder) Summary(ctx context.Context, pageID string, days int) (*analytics.Summary, error) {
	return &analytics.Summary{PageID: pageID, TotalViews: 3}, nil
}

type fakeStats struct{}

func (fakeStats) Get() (*statistics.StatisticsData, error) {
	return &statistics.StatisticsData{TotalUsers: 2, TotalPages: 1}, nil
}

type testEnv struct {
	app      *fiber.App
	repos    *repository.Repositories
	billing  *fakeBilling
	recorder *fakeRecorder
}

// newTestEnv mounts the controllers the way the API router does, with the
// caller identity taken from X-Test-User / X-Test-Role.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := repository.NewRepositories(dbtest.New(t))
	renderer, err := render.New(render.Options{SiteTitle: "Lynqit"})
	require.NoError(t, err)

	env := &testEnv{repos: repos, billing: &fakeBilling{}, recorder: &fakeRecorder{}}
	ctrl := New(Dependencies{
		Repos:     repos,
		Billing:   env.billing,
		Analytics: env.recorder,
		Renderer:  renderer,
		Stats:     fakeStats{},
		Now:       func() time.Time { return testNow },
	})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			role := c.Get("X-Test-Role", models.ROLE_USER)
			usercontext.Set(c, usercontext.UserContext{
				UserID:     id,
				Email:      id + "@lynqit.nl",
				Role:       role,
				IsLoggedIn: true,
				IsAdmin:    role == models.ROLE_ADMIN,
			})
		}
		return c.Next()
	})
	app.Post("/api/analytics/track", ctrl.Analytics.HandleTrack)
	app.Post("/api/analytics/click", ctrl.Analytics.HandleClick)
	app.Get("/api/pages/check-slug", ctrl.Pages.HandleCheckSlug)
	app.Get("/api/pages", ctrl.Pages.HandleList)
	app.Post("/api/pages", ctrl.Pages.HandleCreate)
	app.Get("/api/pages/:id", ctrl.Pages.HandleGet)
	app.Put("/api/pages/:id", ctrl.Pages.HandleUpdate)
	app.Delete("/api/pages/:id", ctrl.Pages.HandleDelete)
	app.Get("/api/pages/:id/analytics", ctrl.Pages.HandleAnalytics)
	app.Post("/api/stripe/payment/create", ctrl.Billing.HandleCreatePayment)
	app.Post("/api/stripe/subscription/cancel", ctrl.Billing.HandleCancelSubscription)
	app.Get("/api/stripe/products", ctrl.Billing.HandleProducts)
	app.Post("/api/stripe/webhook", ctrl.Billing.HandleWebhook)
	app.Get("/api/discount-codes/validate", ctrl.Discounts.HandleValidate)
	app.Get("/api/admin/stats", ctrl.Admin.HandleStats)
	app.Get("/api/admin/queue", ctrl.Admin.HandleQueue)
	app.Get("/api/admin/discount-codes", ctrl.Admin.HandleDiscountCodes)
	app.Post("/api/admin/discount-codes", ctrl.Admin.HandleDiscountCodeCreate)
	app.Put("/api/admin/discount-codes/:id", ctrl.Admin.HandleDiscountCodeUpdate)
	app.Post("/api/admin/plan-mappings", ctrl.Admin.HandlePlanMappingSave)
	app.Get("/:slug", ctrl.Public.HandlePage)
	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path, user string, body interface{}, headers ...string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (e *testEnv) seedPage(t *testing.T, userID, slug, plan string) *models.LynqitPage {
	t.Helper()
	page := models.NewLynqitPage(userID, slug)
	page.SubscriptionPlan = plan
	require.NoError(t, e.repos.Page.Create(page))
	return page
}
