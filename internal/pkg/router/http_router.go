package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

type HttpRouter struct {
	cfg Config
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// fiber metrics
	if len(h.cfg.MetricsUsers) > 0 {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: h.cfg.MetricsUsers,
		}), monitor.New(monitor.Config{Title: "Lynqit Metrics"}))
	}

	h.registerPublicRoutes(app)
}

func NewHttpRouter(cfg Config) *HttpRouter {
	return &HttpRouter{cfg: cfg}
}
