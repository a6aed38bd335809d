package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerAdminRoutes(adminGroup fiber.Router) {
	ctrl := h.cfg.Controllers.Admin

	adminGroup.Get("/stats", ctrl.HandleStats)
	adminGroup.Get("/queue", ctrl.HandleQueue)

	// Users
	adminGroup.Get("/users", ctrl.HandleUsers)
	adminGroup.Put("/users/:id/role", ctrl.HandleUserRole)

	// Discount codes
	adminGroup.Get("/discount-codes", ctrl.HandleDiscountCodes)
	adminGroup.Post("/discount-codes", ctrl.HandleDiscountCodeCreate)
	adminGroup.Put("/discount-codes/:id", ctrl.HandleDiscountCodeUpdate)
	adminGroup.Delete("/discount-codes/:id", ctrl.HandleDiscountCodeDelete)

	// Settings + billing plan mappings
	adminGroup.Get("/settings", ctrl.HandleSettings)
	adminGroup.Put("/settings", ctrl.HandleSettingsUpdate)
	adminGroup.Get("/plan-mappings", ctrl.HandlePlanMappings)
	adminGroup.Post("/plan-mappings", ctrl.HandlePlanMappingSave)
}
