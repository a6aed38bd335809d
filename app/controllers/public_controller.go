package controllers

import (
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/editor"
	"github.com/lynqit/lynqit/internal/pkg/render"
)

// PublicController renders the public pages at /{slug}.
type PublicController struct {
	pages    repository.PageRepository
	renderer *render.Renderer
	now      func() time.Time
}

// NewPublicController creates a new public page controller
func NewPublicController(pages repository.PageRepository, renderer *render.Renderer, now func() time.Time) *PublicController {
	return &PublicController{pages: pages, renderer: renderer, now: now}
}

// HandlePage renders the page stored under :slug, or the not-found page.
func (pc *PublicController) HandlePage(c *fiber.Ctx) error {
	slug := editor.NormalizeSlug(c.Params("slug"))
	now := pc.now()

	if !models.IsValidSlug(slug) {
		return pc.notFound(c, slug, now)
	}

	page, err := pc.pages.GetBySlug(slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return pc.notFound(c, slug, now)
		}
		log.Errorf("[Public] load page %s: %v", slug, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Er ging iets mis, probeer het later opnieuw")
	}

	tracking := true
	if settings := models.GetAppSettings(); settings != nil {
		tracking = settings.IsAnalyticsEnabled()
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=60")
	handler := adaptor.HTTPHandler(templ.Handler(pc.renderer.Component(page, now, tracking)))
	return handler(c)
}

func (pc *PublicController) notFound(c *fiber.Ctx, slug string, now time.Time) error {
	handler := adaptor.HTTPHandler(templ.Handler(
		pc.renderer.NotFoundComponent(slug, now),
		templ.WithStatus(fiber.StatusNotFound),
	))
	return handler(c)
}
