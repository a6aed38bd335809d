package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lynqit/lynqit/app/controllers"
	"github.com/lynqit/lynqit/internal/pkg/middleware"
)

// Router installs a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Config carries what the routers need.
type Config struct {
	Controllers *controllers.Controllers
	Auth        middleware.AuthConfig
	// LimiterStorage backs the rate limiters; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// Health reports whether a dependency is reachable, keyed by name.
	Health map[string]func() error
	// MetricsUsers enables /metrics behind basic auth when not empty.
	MetricsUsers map[string]string
}

// InstallRouter registers the API first and the public page catch-all last,
// so /{slug} never shadows an application route.
func InstallRouter(app *fiber.App, cfg Config) {
	setup(app, NewApiRouter(cfg), NewHttpRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
