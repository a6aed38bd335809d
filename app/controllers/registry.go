package controllers

import (
	"context"
	"time"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/analytics"
	"github.com/lynqit/lynqit/internal/pkg/billing"
	"github.com/lynqit/lynqit/internal/pkg/jobqueue"
	"github.com/lynqit/lynqit/internal/pkg/render"
	"github.com/lynqit/lynqit/internal/pkg/statistics"
)

// BillingService is the billing surface the HTTP layer uses.
type BillingService interface {
	CreateSubscription(ctx context.Context, in billing.CreateSubscriptionInput) (*billing.CreateSubscriptionResult, error)
	UpdateSubscription(ctx context.Context, subscriptionID, newPriceID, pageID string) (*models.LynqitPage, error)
	CancelSubscription(ctx context.Context, subscriptionID, pageID string, immediate bool) (*models.LynqitPage, error)
	CancelForDeletion(ctx context.Context, page *models.LynqitPage) error
	FindByEmail(ctx context.Context, email string) ([]billing.NormalizedSubscription, error)
	ListInvoices(ctx context.Context, email string, limit int) ([]billing.Invoice, error)
	ListProducts(ctx context.Context) ([]billing.Product, error)
	ListPaymentMethods(ctx context.Context, email string) ([]billing.PaymentMethod, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*billing.WebhookResult, error)
	ValidateDiscount(ctx context.Context, code, plan string) (*models.DiscountCode, error)
	ListPlanMappings(ctx context.Context) ([]models.BillingPlanMapping, error)
	SavePlanMapping(ctx context.Context, m *models.BillingPlanMapping) error
}

// AnalyticsRecorder records visitor events and summarises them.
type AnalyticsRecorder interface {
	RecordPageview(ctx context.Context, ev analytics.PageviewEvent) error
	RecordClick(ctx context.Context, ev analytics.ClickEvent) error
	Summary(ctx context.Context, pageID string, days int) (*analytics.Summary, error)
}

// StatsProvider serves the admin dashboard numbers.
type StatsProvider interface {
	Get() (*statistics.StatisticsData, error)
}

// QueueInspector exposes job queue counters.
type QueueInspector interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
	GetDelayedSize(ctx context.Context) (int64, error)
}

// Dependencies wires every controller.
type Dependencies struct {
	Repos     *repository.Repositories
	Billing   BillingService
	Analytics AnalyticsRecorder
	Renderer  *render.Renderer
	Stats     StatsProvider
	Queue     QueueInspector
	Now       func() time.Time
}

// Controllers holds one instance of each controller.
type Controllers struct {
	Public    *PublicController
	Pages     *PageController
	Analytics *AnalyticsController
	Billing   *BillingController
	Discounts *DiscountController
	Admin     *AdminController
}

// New builds all controllers from deps.
func New(deps Dependencies) *Controllers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controllers{
		Public:    NewPublicController(deps.Repos.Page, deps.Renderer, deps.Now),
		Pages:     NewPageController(deps.Repos.Page, deps.Billing, deps.Analytics),
		Analytics: NewAnalyticsController(deps.Analytics),
		Billing:   NewBillingController(deps.Billing, deps.Repos.Page),
		Discounts: NewDiscountController(deps.Billing),
		Admin:     NewAdminController(deps.Repos, deps.Billing, deps.Stats, deps.Queue),
	}
}

// Global controller set used by the routers
var registered *Controllers

// Initialize installs the global controller set.
func Initialize(deps Dependencies) *Controllers {
	registered = New(deps)
	return registered
}

// Get returns the global controller set. Initialize must run first.
func Get() *Controllers {
	if registered == nil {
		panic("controllers not initialized. Call Initialize first.")
	}
	return registered
}
