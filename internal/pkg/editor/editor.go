// Package editor applies dashboard edits to a page record. Every field group
// is optional; a present group replaces the stored value whole.
package editor

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
)

// PageUpdate is the body of a page edit. Nil fields are left untouched.
type PageUpdate struct {
	Version *int `json:"version,omitempty"`

	Template        *string `json:"template,omitempty" validate:"omitempty,oneof=default events artist webshop"`
	Theme           *string `json:"theme,omitempty" validate:"omitempty,oneof=dark light"`
	BrandColor      *string `json:"brandColor,omitempty" validate:"omitempty,hexcolor|len=0"`
	CTATextColor    *string `json:"ctaTextColor,omitempty" validate:"omitempty,hexcolor|len=0"`
	BackgroundColor *string `json:"backgroundColor,omitempty" validate:"omitempty,hexcolor|len=0"`

	Logo           *string `json:"logo,omitempty" validate:"omitempty,url|len=0,max=2048"`
	Intro          *string `json:"intro,omitempty" validate:"omitempty,max=1000"`
	Telefoonnummer *string `json:"telefoonnummer,omitempty" validate:"omitempty,max=32"`
	Emailadres     *string `json:"emailadres,omitempty" validate:"omitempty,email|len=0,max=200"`
	SpotifyURL     *string `json:"spotifyUrl,omitempty" validate:"omitempty,url|len=0,max=2048"`

	Header        *models.Header        `json:"header,omitempty"`
	PromoBanner   *models.PromoBanner   `json:"promoBanner,omitempty"`
	CTAButton     *models.CTAButton     `json:"ctaButton,omitempty"`
	FeaturedLinks *models.FeaturedLinks `json:"featuredLinks,omitempty"`
	SocialMedia   *models.SocialMedia   `json:"socialMedia,omitempty"`

	CustomLinks []models.CustomLink `json:"customLinks,omitempty" validate:"omitempty,dive"`
	Events      []models.Event      `json:"events,omitempty" validate:"omitempty,dive"`
	Shows       []models.Show       `json:"shows,omitempty" validate:"omitempty,dive"`
	Products    []models.Product    `json:"products,omitempty" validate:"omitempty,dive"`
}

// Validate checks formats and lengths of every present field.
func (u *PageUpdate) Validate() error {
	if err := checkStruct(u); err != nil {
		return err
	}
	for _, e := range u.Events {
		if err := checkWindow("events", e.Visibility); err != nil {
			return err
		}
	}
	for _, s := range u.Shows {
		if err := checkWindow("shows", s.Visibility); err != nil {
			return err
		}
	}
	for _, p := range u.Products {
		if err := checkWindow("products", p.Visibility); err != nil {
			return err
		}
		if p.Price.IsNegative() || (p.DiscountPrice != nil && p.DiscountPrice.IsNegative()) {
			return &ValidationError{Field: "products.price", Message: "Prijs mag niet negatief zijn"}
		}
	}
	return nil
}

func checkWindow(field string, v models.Visibility) error {
	if v.VisibleFrom != nil && v.VisibleUntil != nil && !v.VisibleUntil.After(*v.VisibleFrom) {
		return &ValidationError{Field: field, Message: "Zichtbaar tot moet na zichtbaar vanaf liggen"}
	}
	return nil
}

// Authorize rejects present fields the plan does not allow. Clearing a gated
// field is always allowed.
func (u *PageUpdate) Authorize(page *models.LynqitPage, f entitlements.Features) error {
	if !f.ContactInfo && (nonEmpty(u.Telefoonnummer) || nonEmpty(u.Emailadres)) {
		return denied(entitlements.FeatureContactInfo)
	}
	if !f.CTAButton && u.CTAButton != nil && (u.CTAButton.Text != "" || u.CTAButton.Link != "") {
		return denied(entitlements.FeatureCTAButton)
	}
	if !f.FeaturedLinks && u.FeaturedLinks != nil && hasFeatured(*u.FeaturedLinks) {
		return denied(entitlements.FeatureFeaturedLinks)
	}
	if !f.TemplateSections && (len(u.Events) > 0 || len(u.Shows) > 0 || len(u.Products) > 0 || nonEmpty(u.SpotifyURL)) {
		return denied(entitlements.FeatureTemplateSections)
	}
	if !f.TemplateChoice && u.Template != nil && *u.Template != page.Template && *u.Template != models.TemplateDefault {
		return denied(entitlements.FeatureTemplateChoice)
	}
	if !f.VideoHeader && u.Header != nil && u.Header.Type == models.HeaderTypeVideo {
		return denied(entitlements.FeatureVideoHeader)
	}
	if !f.PromoBanner && u.PromoBanner != nil && u.PromoBanner.Enabled {
		return denied(entitlements.FeaturePromoBanner)
	}
	if u.CustomLinks != nil && !f.CustomLinksAllowed(len(u.CustomLinks)) {
		return tooManyLinks(f.MaxCustomLinks)
	}
	return nil
}

// Apply validates and authorizes u against the page's plan, then writes the
// present field groups into page. Nothing is written when an error is returned.
func Apply(page *models.LynqitPage, u *PageUpdate, f entitlements.Features) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := u.Authorize(page, f); err != nil {
		return err
	}

	setString(&page.Template, u.Template)
	setString(&page.Theme, u.Theme)
	setString(&page.BrandColor, u.BrandColor)
	setString(&page.CTATextColor, u.CTATextColor)
	setString(&page.BackgroundColor, u.BackgroundColor)
	setString(&page.Logo, u.Logo)
	setString(&page.Intro, u.Intro)
	setString(&page.Telefoonnummer, u.Telefoonnummer)
	setString(&page.Emailadres, u.Emailadres)
	setString(&page.SpotifyURL, u.SpotifyURL)

	if u.Header != nil {
		h := *u.Header
		if h.Type == "" {
			h.Type = models.HeaderTypeImage
		}
		page.Header = datatypes.NewJSONType(h)
	}
	if u.PromoBanner != nil {
		page.PromoBanner = datatypes.NewJSONType(*u.PromoBanner)
	}
	if u.CTAButton != nil {
		page.CTAButton = datatypes.NewJSONType(*u.CTAButton)
	}
	if u.FeaturedLinks != nil {
		page.FeaturedLinks = datatypes.NewJSONType(*u.FeaturedLinks)
	}
	if u.SocialMedia != nil {
		page.SocialMedia = datatypes.NewJSONType(*u.SocialMedia)
	}
	if u.CustomLinks != nil {
		page.CustomLinks = append(datatypes.JSONSlice[models.CustomLink]{}, u.CustomLinks...)
	}
	if u.Events != nil {
		page.Events = append(datatypes.JSONSlice[models.Event]{}, u.Events...)
	}
	if u.Shows != nil {
		page.Shows = append(datatypes.JSONSlice[models.Show]{}, u.Shows...)
	}
	if u.Products != nil {
		page.Products = append(datatypes.JSONSlice[models.Product]{}, u.Products...)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func hasFeatured(f models.FeaturedLinks) bool {
	for _, slot := range f.Slots() {
		if slot != nil && (slot.Title != "" || slot.Link != "" || slot.Image != "") {
			return true
		}
	}
	return false
}
