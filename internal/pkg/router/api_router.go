package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/lynqit/lynqit/app/controllers"
	"github.com/lynqit/lynqit/internal/pkg/env"
	"github.com/lynqit/lynqit/internal/pkg/middleware"
	"github.com/lynqit/lynqit/internal/pkg/ratelimit"
)

type ApiRouter struct {
	cfg Config
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	ctrl := h.cfg.Controllers
	userContext := middleware.UserContextMiddleware(h.cfg.Auth)

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins:  env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, If-Match, X-User-Email",
		ExposeHeaders: "ETag",
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Lynqit API",
		})
	})

	// visitor beacons, keyed by client IP
	tracking := ratelimit.New(ratelimit.Config{
		Max:        env.GetInt("RATE_LIMIT_TRACKING", 120),
		Expiration: time.Minute,
		Storage:    h.cfg.LimiterStorage,
		KeyFunc:    controllers.GetClientIP,
	})
	api.Post("/analytics/track", tracking, ctrl.Analytics.HandleTrack)
	api.Post("/analytics/click", tracking, ctrl.Analytics.HandleClick)

	lookups := ratelimit.New(ratelimit.Config{
		Max:        env.GetInt("RATE_LIMIT_LOOKUPS", 30),
		Expiration: time.Minute,
		Storage:    h.cfg.LimiterStorage,
		KeyFunc:    controllers.GetClientIP,
	})
	api.Get("/discount-codes/validate", lookups, ctrl.Discounts.HandleValidate)

	// Stripe signs webhooks; no user context
	api.Post("/stripe/webhook", ctrl.Billing.HandleWebhook)
	api.Get("/stripe/products", ctrl.Billing.HandleProducts)

	stripe := api.Group("/stripe", userContext, middleware.RequireAuth)
	stripe.Post("/payment/create", ctrl.Billing.HandleCreatePayment)
	stripe.Get("/payment/methods", ctrl.Billing.HandlePaymentMethods)
	stripe.Post("/subscription/update", ctrl.Billing.HandleUpdateSubscription)
	stripe.Post("/subscription/cancel", ctrl.Billing.HandleCancelSubscription)
	stripe.Get("/subscription/find-by-email", ctrl.Billing.HandleFindByEmail)
	stripe.Get("/invoices", ctrl.Billing.HandleInvoices)

	pages := api.Group("/pages", userContext, middleware.RequireAuth)
	pages.Get("/check-slug", lookups, ctrl.Pages.HandleCheckSlug)
	pages.Get("/", ctrl.Pages.HandleList)
	pages.Post("/", ctrl.Pages.HandleCreate)
	pages.Get("/:id", ctrl.Pages.HandleGet)
	pages.Put("/:id", ctrl.Pages.HandleUpdate)
	pages.Delete("/:id", ctrl.Pages.HandleDelete)
	pages.Get("/:id/analytics", ctrl.Pages.HandleAnalytics)

	h.registerAdminRoutes(api.Group("/admin", userContext, middleware.RequireAdmin))

	// unknown API paths answer JSON instead of falling through to /{slug}
	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Onbekend API-pad",
		})
	})
}

func NewApiRouter(cfg Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}
