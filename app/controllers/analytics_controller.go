package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/lynqit/lynqit/internal/pkg/analytics"
)

// AnalyticsController receives the tracking beacons of public pages.
type AnalyticsController struct {
	recorder AnalyticsRecorder
}

// NewAnalyticsController creates a new analytics controller
func NewAnalyticsController(recorder AnalyticsRecorder) *AnalyticsController {
	return &AnalyticsController{recorder: recorder}
}

type trackRequest struct {
	PageID    string `json:"pageId"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
}

type clickRequest struct {
	PageID    string `json:"pageId"`
	ClickType string `json:"clickType"`
	TargetURL string `json:"targetUrl"`
	UserAgent string `json:"userAgent"`
}

// HandleTrack records a page view.
func (ac *AnalyticsController) HandleTrack(c *fiber.Ctx) error {
	var req trackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	if req.Referrer == "" {
		req.Referrer = c.Get(fiber.HeaderReferer)
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	err := ac.recorder.RecordPageview(c.UserContext(), analytics.PageviewEvent{
		PageID:    req.PageID,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
		IP:        GetClientIP(c),
	})
	return ac.respond(c, err)
}

// HandleClick records a click on a page element.
func (ac *AnalyticsController) HandleClick(c *fiber.Ctx) error {
	var req clickRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Ongeldige invoer")
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Get(fiber.HeaderUserAgent)
	}

	err := ac.recorder.RecordClick(c.UserContext(), analytics.ClickEvent{
		PageID:    req.PageID,
		ClickType: req.ClickType,
		TargetURL: req.TargetURL,
		UserAgent: req.UserAgent,
		IP:        GetClientIP(c),
	})
	return ac.respond(c, err)
}

// respond acknowledges every event except malformed ones; storage failures
// never reach the visitor.
func (ac *AnalyticsController) respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, analytics.ErrMissingPageID):
		return badRequest(c, "pageId is verplicht")
	case errors.Is(err, analytics.ErrMissingClickType):
		return badRequest(c, "clickType is verplicht")
	}
	return c.JSON(fiber.Map{"ok": true})
}
