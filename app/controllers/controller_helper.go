package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/billing"
	"github.com/lynqit/lynqit/internal/pkg/editor"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
)

var (
	errPageNotFound = errors.New("page not found")
	errAccessDenied = errors.New("access denied")
)

const providerErrorMessage = "Er ging iets mis bij de betaalprovider, probeer het later opnieuw"

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusBadRequest, "validation_failed", message)
}

func notFound(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusNotFound, "not_found", message)
}

func forbidden(c *fiber.Ctx) error {
	return jsonError(c, fiber.StatusForbidden, "forbidden", "Je hebt geen toegang tot deze pagina")
}

// respondError maps domain errors to HTTP responses. Unknown errors are
// logged and answered with 500.
func respondError(c *fiber.Ctx, err error) error {
	var validationErr *editor.ValidationError
	var entitlementErr *editor.EntitlementError
	var providerErr *billing.ProviderError

	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Message)
	case errors.As(err, &entitlementErr):
		return jsonError(c, fiber.StatusBadRequest, "feature_not_available", entitlementErr.Message)
	case errors.Is(err, repository.ErrSlugTaken):
		return jsonError(c, fiber.StatusBadRequest, "slug_taken", "Deze URL is al in gebruik, kies een andere")
	case errors.Is(err, repository.ErrVersionConflict):
		return jsonError(c, fiber.StatusConflict, "version_conflict", "De pagina is intussen gewijzigd, laad de pagina opnieuw")
	case errors.Is(err, billing.ErrLockBusy):
		return jsonError(c, fiber.StatusConflict, "busy", "Er wordt al een wijziging verwerkt, probeer het zo opnieuw")
	case errors.Is(err, billing.ErrInvalidDiscountCode):
		return badRequest(c, billing.DiscountMessage(err))
	case errors.Is(err, billing.ErrInvalidPlan):
		return badRequest(c, "Ongeldig abonnement")
	case errors.Is(err, billing.ErrUnknownPrice):
		return badRequest(c, "Onbekende prijs voor dit abonnement")
	case errors.Is(err, billing.ErrAlreadySubscribed):
		return jsonError(c, fiber.StatusBadRequest, "already_subscribed", "Deze pagina heeft al een abonnement, gebruik upgraden om van abonnement te wisselen")
	case errors.Is(err, billing.ErrInvalidTransition):
		return badRequest(c, "Deze wijziging is niet mogelijk voor het huidige abonnement")
	case errors.Is(err, errPageNotFound):
		return notFound(c, "Pagina niet gevonden")
	case errors.Is(err, errAccessDenied), errors.Is(err, billing.ErrPageNotOwned):
		return forbidden(c)
	case errors.Is(err, billing.ErrSubscriptionMissing):
		return notFound(c, "Abonnement niet gevonden")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(c, "Niet gevonden")
	case errors.Is(err, billing.ErrNotConfigured):
		log.Errorf("[Billing] %v", err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", providerErrorMessage)
	case errors.As(err, &providerErr):
		log.Errorf("[Billing] provider call %s failed: %v", providerErr.Op, providerErr.Err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", providerErrorMessage)
	default:
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Er ging iets mis, probeer het later opnieuw")
	}
}

// canAccessPage reports whether the caller owns page or is an admin.
func canAccessPage(c *fiber.Ctx, page *models.LynqitPage) bool {
	uc := usercontext.GetUserContext(c)
	return uc.IsLoggedIn && (uc.IsAdmin || page.UserID == uc.UserID)
}

// parseVersion reads the expected page version from If-Match. ETag quotes
// and the weak prefix are accepted.
func parseVersion(header string) (int, bool) {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return 0, false
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func etag(version int) string {
	return `"` + strconv.Itoa(version) + `"`
}

// GetClientIP determines the visitor IP considering Cloudflare and proxies.
func GetClientIP(c *fiber.Ctx) string {
	if cf := strings.TrimSpace(c.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		// the first entry is the original client
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}
