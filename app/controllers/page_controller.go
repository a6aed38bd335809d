package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/editor"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
	"github.com/lynqit/lynqit/internal/pkg/slugs"
	"github.com/lynqit/lynqit/internal/pkg/usercontext"
)

const slugSuggestions = 3

// PageController serves the dashboard page API.
type PageController struct {
	pages     repository.PageRepository
	billing   BillingService
	analytics AnalyticsRecorder
}

// NewPageController creates a new page controller
func NewPageController(pages repository.PageRepository, billing BillingService, analytics AnalyticsRecorder) *PageController {
	return &PageController{pages: pages, billing: billing, analytics: analytics}
}

// pageResponse is a page as its plan allows it to be shown and edited.
type pageResponse struct {
	*models.LynqitPage
	Features entitlements.Features `json:"features"`
}

func newPageResponse(page *models.LynqitPage) pageResponse {
	return pageResponse{
		LynqitPage: entitlements.Clamp(page),
		Features:   entitlements.ForPage(page),
	}
}

type createPageRequest struct {
	Slug string `json:"slug"`
	editor.PageUpdate
}

// HandleList lists the caller's pages
func (pc *PageController) HandleList(c *fiber.Ctx) error {
	pages, err := pc.pages.GetByUserID(usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]pageResponse, 0, len(pages))
	for i := range pages {
		out = append(out, newPageResponse(&pages[i]))
	}
	return c.JSON(fiber.Map{"pages": out})
}

// HandleCreate creates a free page for the caller
func (pc *PageController) HandleCreate(c *fiber.Ctx) error {
	var req createPageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}

	slug := editor.NormalizeSlug(req.Slug)
	if err := editor.ValidateSlug(slug); err != nil {
		return respondError(c, err)
	}

	page := models.NewLynqitPage(usercontext.GetUserID(c), slug)
	if err := editor.Apply(page, &req.PageUpdate, entitlements.ForPage(page)); err != nil {
		return respondError(c, err)
	}

	if err := pc.pages.Create(page); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":       "slug_taken",
				"message":     "Deze URL is al in gebruik, kies een andere",
				"suggestions": pc.suggest(slug),
			})
		}
		return respondError(c, err)
	}

	log.Infof("[Pages] page %s created with slug %s", page.ID, page.Slug)
	c.Set(fiber.HeaderETag, etag(page.Version))
	return c.Status(fiber.StatusCreated).JSON(newPageResponse(page))
}

// HandleGet returns one page of the caller
func (pc *PageController) HandleGet(c *fiber.Ctx) error {
	page, err := pc.load(c)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderETag, etag(page.Version))
	return c.JSON(newPageResponse(page))
}

// HandleUpdate applies a partial edit. The expected version comes from
// If-Match or the body; without one the edit is last-write-wins.
func (pc *PageController) HandleUpdate(c *fiber.Ctx) error {
	page, err := pc.load(c)
	if err != nil {
		return respondError(c, err)
	}

	var update editor.PageUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}

	expected := page.Version
	if v, ok := parseVersion(c.Get(fiber.HeaderIfMatch)); ok {
		expected = v
	} else if update.Version != nil {
		expected = *update.Version
	}
	if expected != page.Version {
		return respondError(c, repository.ErrVersionConflict)
	}

	if err := editor.Apply(page, &update, entitlements.ForPage(page)); err != nil {
		return respondError(c, err)
	}
	if err := pc.pages.Update(page, expected); err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderETag, etag(page.Version))
	return c.JSON(newPageResponse(page))
}

// HandleDelete cancels any paid subscription and removes the page
func (pc *PageController) HandleDelete(c *fiber.Ctx) error {
	page, err := pc.load(c)
	if err != nil {
		return respondError(c, err)
	}

	if pc.billing != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
		defer cancel()
		if err := pc.billing.CancelForDeletion(ctx, page); err != nil {
			return respondError(c, err)
		}
	}
	if err := pc.pages.Delete(page.ID); err != nil {
		return respondError(c, err)
	}
	log.Infof("[Pages] page %s (%s) deleted", page.ID, page.Slug)
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAnalytics returns the visitor summary of a page
func (pc *PageController) HandleAnalytics(c *fiber.Ctx) error {
	page, err := pc.load(c)
	if err != nil {
		return respondError(c, err)
	}
	summary, err := pc.analytics.Summary(c.UserContext(), page.ID, c.QueryInt("days", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// HandleCheckSlug reports whether a slug is free and suggests alternatives
func (pc *PageController) HandleCheckSlug(c *fiber.Ctx) error {
	slug := editor.NormalizeSlug(c.Query("slug"))
	if err := editor.ValidateSlug(slug); err != nil {
		var ve *editor.ValidationError
		errors.As(err, &ve)
		return c.JSON(fiber.Map{
			"slug":        slug,
			"valid":       false,
			"available":   false,
			"message":     ve.Message,
			"suggestions": pc.suggest(slug),
		})
	}

	taken, err := pc.pages.SlugExists(slug)
	if err != nil {
		return respondError(c, err)
	}
	resp := fiber.Map{"slug": slug, "valid": true, "available": !taken}
	if taken {
		resp["message"] = "Deze URL is al in gebruik"
		resp["suggestions"] = pc.suggest(slug)
	}
	return c.JSON(resp)
}

// load fetches the :id page the caller may access.
func (pc *PageController) load(c *fiber.Ctx) (*models.LynqitPage, error) {
	page, err := pc.pages.GetByID(c.Params("id"))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errPageNotFound
		}
		return nil, err
	}
	if !canAccessPage(c, page) {
		return nil, errAccessDenied
	}
	return page, nil
}

func (pc *PageController) suggest(slug string) []string {
	out, err := slugs.Suggest(slug, slugSuggestions, func(s string) (bool, error) {
		if editor.ValidateSlug(s) != nil {
			return true, nil
		}
		return pc.pages.SlugExists(s)
	})
	if err != nil {
		log.Warnf("[Pages] slug suggestions for %q failed: %v", slug, err)
		return []string{}
	}
	return out
}
