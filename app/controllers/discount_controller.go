package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lynqit/lynqit/internal/pkg/billing"
)

// DiscountController answers discount code checks from the checkout.
type DiscountController struct {
	billing BillingService
}

// NewDiscountController creates a new discount controller
func NewDiscountController(billing BillingService) *DiscountController {
	return &DiscountController{billing: billing}
}

// HandleValidate checks ?code= against ?plan=. A rejected code is a normal
// answer, not an error.
func (dc *DiscountController) HandleValidate(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	plan := strings.TrimSpace(c.Query("plan"))
	if code == "" || plan == "" {
		return badRequest(c, "Kortingscode en abonnement zijn verplicht")
	}

	dcode, err := dc.billing.ValidateDiscount(c.UserContext(), code, plan)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidDiscountCode) {
			return c.JSON(fiber.Map{"valid": false, "message": billing.DiscountMessage(err)})
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":         true,
		"code":          dcode.Code,
		"discountType":  dcode.DiscountType,
		"discountValue": dcode.DiscountValue,
		"isPercentage":  dcode.IsPercentage,
		"message":       "Kortingscode toegepast",
	})
}
