package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
	"github.com/lynqit/lynqit/internal/pkg/utils"
)

const adminUsersPerPage = 50

// AdminController handles the admin API using the repository pattern
type AdminController struct {
	repos   *repository.Repositories
	billing BillingService
	stats   StatsProvider
	queue   QueueInspector
	now     func() time.Time
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories, billing BillingService, stats StatsProvider, queue QueueInspector) *AdminController {
	return &AdminController{
		repos:   repos,
		billing: billing,
		stats:   stats,
		queue:   queue,
		now:     time.Now,
	}
}

// HandleStats returns the dashboard totals and the signups of the last week
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	data, err := ac.stats.Get()
	if err != nil {
		return ac.handleError(c, "Failed to get statistics", err)
	}
	return c.JSON(fiber.Map{
		"stats":       data,
		"signupsWeek": ac.getLastSevenDaysSignups(),
	})
}

// HandleUsers lists users, newest first
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	total, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to get user count", err)
	}
	users, err := ac.repos.User.List((page-1)*adminUsersPerPage, adminUsersPerPage)
	if err != nil {
		return ac.handleError(c, "Failed to list users", err)
	}
	views := make([]adminUserView, 0, len(users))
	for i := range users {
		views = append(views, adminUserView{User: &users[i], AvatarURL: utils.AvatarURL(users[i].Email, 0)})
	}
	return c.JSON(fiber.Map{"users": views, "total": total, "page": page, "perPage": adminUsersPerPage})
}

type adminUserView struct {
	*models.User
	AvatarURL string `json:"avatarUrl"`
}

// HandleUserRole promotes or demotes a user
func (ac *AdminController) HandleUserRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != models.ROLE_ADMIN && role != models.ROLE_USER {
		return badRequest(c, "Ongeldige rol")
	}
	userID := c.Params("id")
	if userID == usercontext.GetUserID(c) && role != models.ROLE_ADMIN {
		return badRequest(c, "Je kunt je eigen beheerdersrechten niet intrekken")
	}
	if err := ac.repos.User.UpdateRole(userID, role); err != nil {
		return respondError(c, err)
	}
	log.Infof("[Admin] user %s now has role %s", userID, role)
	return c.JSON(fiber.Map{"ok": true, "role": role})
}

// HandleDiscountCodes lists all discount codes
func (ac *AdminController) HandleDiscountCodes(c *fiber.Ctx) error {
	codes, err := ac.repos.DiscountCode.List()
	if err != nil {
		return ac.handleError(c, "Failed to list discount codes", err)
	}
	return c.JSON(fiber.Map{"discountCodes": codes})
}

// HandleDiscountCodeCreate creates a discount code
func (ac *AdminController) HandleDiscountCodeCreate(c *fiber.Ctx) error {
	code := models.DiscountCode{
		Active:          true,
		IsPercentage:    true,
		ValidFrom:       ac.now(),
		DiscountType:    models.DiscountTypeFirstPayment,
		DiscountValue:   decimal.Zero,
		ApplicablePlans: []string{"start", "pro"},
	}
	if err := c.BodyParser(&code); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	code.ID = ""
	code.UsedCount = 0
	code.StripeCouponID = ""
	code.Code = models.NormalizeDiscountCode(code.Code)
	code.ApplicablePlans = normalizePlans(code.ApplicablePlans)

	if err := code.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if existing, err := ac.repos.DiscountCode.GetByCode(code.Code); err == nil && existing != nil {
		return badRequest(c, "Deze kortingscode bestaat al")
	}
	if err := ac.repos.DiscountCode.Create(&code); err != nil {
		return ac.handleError(c, "Failed to create discount code", err)
	}
	log.Infof("[Admin] discount code %s created", code.Code)
	return c.Status(fiber.StatusCreated).JSON(code)
}

// HandleDiscountCodeUpdate changes a discount code. Changing what the code
// grants drops the cached Stripe coupon so a new one is created on next use.
func (ac *AdminController) HandleDiscountCodeUpdate(c *fiber.Ctx) error {
	code, err := ac.repos.DiscountCode.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	before := *code

	if err := c.BodyParser(code); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	code.ID = before.ID
	code.UsedCount = before.UsedCount
	code.StripeCouponID = before.StripeCouponID
	code.Code = models.NormalizeDiscountCode(code.Code)
	code.ApplicablePlans = normalizePlans(code.ApplicablePlans)

	if err := code.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if code.Code != before.Code {
		if other, err := ac.repos.DiscountCode.GetByCode(code.Code); err == nil && other.ID != code.ID {
			return badRequest(c, "Deze kortingscode bestaat al")
		}
	}
	if code.Code != before.Code || code.DiscountType != before.DiscountType ||
		code.IsPercentage != before.IsPercentage || !code.DiscountValue.Equal(before.DiscountValue) {
		code.StripeCouponID = ""
	}

	if err := ac.repos.DiscountCode.Update(code); err != nil {
		return respondError(c, err)
	}
	return c.JSON(code)
}

// HandleDiscountCodeDelete removes a discount code
func (ac *AdminController) HandleDiscountCodeDelete(c *fiber.Ctx) error {
	if err := ac.repos.DiscountCode.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type settingsRequest struct {
	SiteTitle            string `json:"site_title"`
	AnalyticsEnabled     *bool  `json:"analytics_enabled"`
	StripePublishableKey string `json:"stripe_publishable_key"`
	StripeSecretKey      string `json:"stripe_secret_key"`
	StripeWebhookSecret  string `json:"stripe_webhook_secret"`
}

// HandleSettings returns the settings. Secrets are reported as set or not.
func (ac *AdminController) HandleSettings(c *fiber.Ctx) error {
	s, err := ac.repos.Setting.Get()
	if err != nil {
		return ac.handleError(c, "Failed to load settings", err)
	}
	return c.JSON(settingsView(s))
}

// HandleSettingsUpdate saves the settings. Empty secrets keep the stored value.
func (ac *AdminController) HandleSettingsUpdate(c *fiber.Ctx) error {
	current, err := ac.repos.Setting.Get()
	if err != nil {
		return ac.handleError(c, "Failed to load settings", err)
	}

	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}

	next := &models.AppSettings{
		SiteTitle:            strings.TrimSpace(req.SiteTitle),
		AnalyticsEnabled:     current.IsAnalyticsEnabled(),
		StripePublishableKey: strings.TrimSpace(req.StripePublishableKey),
		StripeSecretKey:      strings.TrimSpace(req.StripeSecretKey),
		StripeWebhookSecret:  strings.TrimSpace(req.StripeWebhookSecret),
	}
	if next.SiteTitle == "" {
		next.SiteTitle = current.GetSiteTitle()
	}
	if req.AnalyticsEnabled != nil {
		next.AnalyticsEnabled = *req.AnalyticsEnabled
	}

	if err := ac.repos.Setting.Save(next); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return badRequest(c, "De sitetitel is verplicht (maximaal 255 tekens)")
		}
		return ac.handleError(c, "Failed to save settings", err)
	}
	log.Infof("[Admin] settings updated by %s", usercontext.GetEmail(c))
	return c.JSON(settingsView(models.GetAppSettings()))
}

// HandlePlanMappings lists the Stripe price to plan mappings
func (ac *AdminController) HandlePlanMappings(c *fiber.Ctx) error {
	mappings, err := ac.billing.ListPlanMappings(c.UserContext())
	if err != nil {
		return ac.handleError(c, "Failed to list plan mappings", err)
	}
	return c.JSON(fiber.Map{"planMappings": mappings})
}

// HandlePlanMappingSave creates or updates a price mapping
func (ac *AdminController) HandlePlanMappingSave(c *fiber.Ctx) error {
	var m models.BillingPlanMapping
	m.IsActive = true
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	m.ID = 0
	if err := ac.billing.SavePlanMapping(c.UserContext(), &m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return badRequest(c, "Een prijs-ID, abonnement (start of pro) en interval (month of year) zijn verplicht")
		}
		return ac.handleError(c, "Failed to save plan mapping", err)
	}
	return c.JSON(m)
}

func settingsView(s *models.AppSettings) fiber.Map {
	return fiber.Map{
		"site_title":             s.GetSiteTitle(),
		"analytics_enabled":      s.IsAnalyticsEnabled(),
		"stripe_publishable_key": s.GetStripePublishableKey(),
		"stripe_secret_key_set":  s.GetStripeSecretKey() != "",
		"stripe_webhook_set":     s.GetStripeWebhookSecret() != "",
	}
}

func normalizePlans(plans []string) []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Admin] %s: %v", message, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Er ging iets mis, probeer het later opnieuw")
}

// getLastSevenDaysSignups returns daily signups for the last 7 days, with
// empty days filled in
func (ac *AdminController) getLastSevenDaysSignups() []models.DailyStats {
	now := ac.now().UTC()
	startDate := now.AddDate(0, 0, -6).Truncate(24 * time.Hour)
	endDate := now.Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)

	stats, err := ac.repos.User.GetDailyStats(startDate, endDate)
	if err != nil {
		log.Warnf("[Admin] daily signup stats: %v", err)
		stats = nil
	}
	return fillStatGaps(stats, startDate, 7)
}

func fillStatGaps(stats []models.DailyStats, startDate time.Time, days int) []models.DailyStats {
	byDate := make(map[string]int, len(stats))
	for _, s := range stats {
		byDate[s.Date] = s.Count
	}
	out := make([]models.DailyStats, days)
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = models.DailyStats{Date: date, Count: byDate[date]}
	}
	return out
}
