package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	HeaderTypeImage = "image"
	HeaderTypeVideo = "video"
)

// Header is the media region at the top of a page.
type Header struct {
	Type string `json:"type" validate:"omitempty,oneof=image video"`
	URL  string `json:"url" validate:"omitempty,url,max=2048"`
}

// PromoBanner is the pro-only banner block.
type PromoBanner struct {
	Enabled         bool   `json:"enabled"`
	Title           string `json:"title" validate:"max=120"`
	Description     string `json:"description" validate:"max=500"`
	ButtonText      string `json:"buttonText" validate:"max=60"`
	ButtonLink      string `json:"buttonLink" validate:"omitempty,url,max=2048"`
	BackgroundImage string `json:"backgroundImage" validate:"omitempty,url,max=2048"`
}

// CTAButton is the call-to-action pill rendered with the contact actions.
type CTAButton struct {
	Text string `json:"text" validate:"max=60"`
	Link string `json:"link" validate:"omitempty,url,max=2048"`
}

// IsSet reports whether both text and link are present.
func (c CTAButton) IsSet() bool {
	return c.Text != "" && c.Link != ""
}

// CustomLink is one entry of the ordered link list.
type CustomLink struct {
	Text    string `json:"text" validate:"required,max=120"`
	URL     string `json:"url" validate:"required,url,max=2048"`
	Enabled bool   `json:"enabled"`
}

// FeaturedLink is a single image card of the featured links grid.
type FeaturedLink struct {
	Image string `json:"image" validate:"omitempty,url,max=2048"`
	Title string `json:"title" validate:"max=120"`
	Link  string `json:"link" validate:"omitempty,url,max=2048"`
}

// FeaturedLinks holds the four fixed grid slots. Nil slots are skipped.
type FeaturedLinks struct {
	Link1 *FeaturedLink `json:"link1,omitempty" validate:"omitempty"`
	Link2 *FeaturedLink `json:"link2,omitempty" validate:"omitempty"`
	Link3 *FeaturedLink `json:"link3,omitempty" validate:"omitempty"`
	Link4 *FeaturedLink `json:"link4,omitempty" validate:"omitempty"`
}

// Slots returns the slots in display order, including nil ones.
func (f FeaturedLinks) Slots() []*FeaturedLink {
	return []*FeaturedLink{f.Link1, f.Link2, f.Link3, f.Link4}
}

// SocialMedia is the sparse set of platform profile URLs.
type SocialMedia struct {
	Instagram  string `json:"instagram,omitempty" validate:"omitempty,url"`
	Facebook   string `json:"facebook,omitempty" validate:"omitempty,url"`
	TikTok     string `json:"tiktok,omitempty" validate:"omitempty,url"`
	YouTube    string `json:"youtube,omitempty" validate:"omitempty,url"`
	X          string `json:"x,omitempty" validate:"omitempty,url"`
	LinkedIn   string `json:"linkedin,omitempty" validate:"omitempty,url"`
	Spotify    string `json:"spotify,omitempty" validate:"omitempty,url"`
	SoundCloud string `json:"soundcloud,omitempty" validate:"omitempty,url"`
	Pinterest  string `json:"pinterest,omitempty" validate:"omitempty,url"`
	WhatsApp   string `json:"whatsapp,omitempty" validate:"omitempty,url"`
	Website    string `json:"website,omitempty" validate:"omitempty,url"`
}

// ByPlatform returns the configured URL keyed by platform name.
func (s SocialMedia) ByPlatform() map[string]string {
	all := map[string]string{
		"instagram":  s.Instagram,
		"facebook":   s.Facebook,
		"tiktok":     s.TikTok,
		"youtube":    s.YouTube,
		"x":          s.X,
		"linkedin":   s.LinkedIn,
		"spotify":    s.Spotify,
		"soundcloud": s.SoundCloud,
		"pinterest":  s.Pinterest,
		"whatsapp":   s.WhatsApp,
		"website":    s.Website,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Visibility is the optional display window shared by template items.
// The window is half-open: VisibleFrom <= now < VisibleUntil.
type Visibility struct {
	Enabled      bool       `json:"enabled"`
	VisibleFrom  *time.Time `json:"visibleFrom,omitempty"`
	VisibleUntil *time.Time `json:"visibleUntil,omitempty"`
}

// VisibleAt reports whether the item is enabled and inside its window at now.
func (v Visibility) VisibleAt(now time.Time) bool {
	if !v.Enabled {
		return false
	}
	if v.VisibleFrom != nil && now.Before(*v.VisibleFrom) {
		return false
	}
	if v.VisibleUntil != nil && !now.Before(*v.VisibleUntil) {
		return false
	}
	return true
}

// Event is an entry of the events template list.
type Event struct {
	Visibility
	Title       string `json:"title" validate:"required,max=120"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string `json:"time" validate:"max=20"`
	Location    string `json:"location" validate:"max=120"`
	Description string `json:"description" validate:"max=1000"`
	Image       string `json:"image" validate:"omitempty,url,max=2048"`
	Link        string `json:"link" validate:"omitempty,url,max=2048"`
	ButtonText  string `json:"buttonText" validate:"max=60"`
}

// Show is an entry of the artist template show list.
type Show struct {
	Visibility
	Title    string `json:"title" validate:"required,max=120"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Location string `json:"location" validate:"max=120"`
	Link     string `json:"link" validate:"omitempty,url,max=2048"`
}

// Product is an entry of the webshop product grid.
type Product struct {
	Visibility
	Title         string           `json:"title" validate:"required,max=120"`
	Image         string           `json:"image" validate:"omitempty,url,max=2048"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	FromPrice     bool             `json:"fromPrice"`
	Link          string           `json:"link" validate:"omitempty,url,max=2048"`
}

// HasDiscount reports whether a lower discount price is set.
func (p Product) HasDiscount() bool {
	return p.DiscountPrice != nil && p.DiscountPrice.LessThan(p.Price)
}
