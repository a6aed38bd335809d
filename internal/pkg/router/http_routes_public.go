package router

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", h.handleHealth)

	// Public page display, registered last
	app.Get("/:slug", h.cfg.Controllers.Public.HandlePage)
}

// handleHealth answers 503 when any dependency check fails.
func (h HttpRouter) handleHealth(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.cfg.Health))
	for name := range h.cfg.Health {
		names = append(names, name)
	}
	sort.Strings(names)

	status := fiber.StatusOK
	checks := fiber.Map{}
	for _, name := range names {
		if err := h.cfg.Health[name](); err != nil {
			log.Warnf("[Health] %s: %v", name, err)
			checks[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": checks})
}
