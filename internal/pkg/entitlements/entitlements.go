package entitlements

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/lynqit/lynqit/app/models"
)

type Plan string

const (
	PlanFree  Plan = "free"
	PlanStart Plan = "start"
	PlanPro   Plan = "pro"
)

// FreeCustomLinkLimit is the number of custom links a free page may hold.
const FreeCustomLinkLimit = 5

// Unlimited marks a list without a plan cap.
const Unlimited = -1

// Feature names a plan-gated content block.
type Feature string

const (
	FeatureContactInfo      Feature = "contact_info"
	FeatureCTAButton        Feature = "cta_button"
	FeatureFeaturedLinks    Feature = "featured_links"
	FeatureTemplateSections Feature = "template_sections"
	FeatureTemplateChoice   Feature = "template_choice"
	FeatureVideoHeader      Feature = "video_header"
	FeaturePromoBanner      Feature = "promo_banner"
)

// AllFeatures lists every gated feature in a stable order.
var AllFeatures = []Feature{
	FeatureContactInfo,
	FeatureCTAButton,
	FeatureFeaturedLinks,
	FeatureTemplateSections,
	FeatureTemplateChoice,
	FeatureVideoHeader,
	FeaturePromoBanner,
}

// Features is the resolved feature set of a plan.
type Features struct {
	Plan             Plan `json:"plan"`
	ContactInfo      bool `json:"contactInfo"`
	CTAButton        bool `json:"ctaButton"`
	FeaturedLinks    bool `json:"featuredLinks"`
	TemplateSections bool `json:"templateSections"`
	TemplateChoice   bool `json:"templateChoice"`
	VideoHeader      bool `json:"videoHeader"`
	PromoBanner      bool `json:"promoBanner"`
	MaxCustomLinks   int  `json:"maxCustomLinks"`
}

// Has reports whether the feature set includes f.
func (f Features) Has(feature Feature) bool {
	switch feature {
	case FeatureContactInfo:
		return f.ContactInfo
	case FeatureCTAButton:
		return f.CTAButton
	case FeatureFeaturedLinks:
		return f.FeaturedLinks
	case FeatureTemplateSections:
		return f.TemplateSections
	case FeatureTemplateChoice:
		return f.TemplateChoice
	case FeatureVideoHeader:
		return f.VideoHeader
	case FeaturePromoBanner:
		return f.PromoBanner
	default:
		return false
	}
}

// CustomLinksAllowed reports whether n custom links fit the plan.
func (f Features) CustomLinksAllowed(n int) bool {
	return f.MaxCustomLinks == Unlimited || n <= f.MaxCustomLinks
}

// ParsePlan normalizes a stored plan value. Unknown values resolve to free.
func ParsePlan(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanPro:
		return PlanPro
	case PlanStart:
		return PlanStart
	default:
		return PlanFree
	}
}

// Rank orders plans from free (0) to pro (2).
func Rank(plan Plan) int {
	switch plan {
	case PlanPro:
		return 2
	case PlanStart:
		return 1
	default:
		return 0
	}
}

// For returns the feature set of a plan.
func For(plan Plan) Features {
	switch ParsePlan(string(plan)) {
	case PlanPro:
		return Features{
			Plan:             PlanPro,
			ContactInfo:      true,
			CTAButton:        true,
			FeaturedLinks:    true,
			TemplateSections: true,
			TemplateChoice:   true,
			VideoHeader:      true,
			PromoBanner:      true,
			MaxCustomLinks:   Unlimited,
		}
	case PlanStart:
		return Features{
			Plan:             PlanStart,
			ContactInfo:      true,
			CTAButton:        true,
			FeaturedLinks:    true,
			TemplateSections: true,
			MaxCustomLinks:   Unlimited,
		}
	default:
		return Features{
			Plan:           PlanFree,
			MaxCustomLinks: FreeCustomLinkLimit,
		}
	}
}

// ForPage returns the feature set of the page's stored plan.
func ForPage(page *models.LynqitPage) Features {
	return For(ParsePlan(page.SubscriptionPlan))
}

// Clamp returns a copy of page reduced to what its plan allows.
// The stored record is never modified so an upgrade restores the data.
func Clamp(page *models.LynqitPage) *models.LynqitPage {
	f := ForPage(page)
	out := page.Copy()

	if !f.VideoHeader {
		h := out.Header.Data()
		if h.Type != models.HeaderTypeImage {
			h.Type = models.HeaderTypeImage
			out.Header = datatypes.NewJSONType(h)
		}
	}
	if !f.PromoBanner {
		out.PromoBanner = datatypes.NewJSONType(models.PromoBanner{})
	}
	if !f.ContactInfo {
		out.Telefoonnummer = ""
		out.Emailadres = ""
	}
	if !f.CTAButton {
		out.CTAButton = datatypes.NewJSONType(models.CTAButton{})
	}
	if !f.FeaturedLinks {
		out.FeaturedLinks = datatypes.NewJSONType(models.FeaturedLinks{})
	}
	if !f.TemplateSections {
		out.Events = datatypes.JSONSlice[models.Event]{}
		out.Shows = datatypes.JSONSlice[models.Show]{}
		out.Products = datatypes.JSONSlice[models.Product]{}
		out.SpotifyURL = ""
	}
	out.Template = EffectiveTemplate(page.Template, f)
	if f.MaxCustomLinks != Unlimited {
		out.CustomLinks = firstEnabledLinks(out.CustomLinks, f.MaxCustomLinks)
	}
	return out
}

// EffectiveTemplate returns the template a page renders with. Template
// variants need template sections; below that the default layout is used.
func EffectiveTemplate(template string, f Features) string {
	switch template {
	case models.TemplateEvents, models.TemplateArtist, models.TemplateWebshop:
		if f.TemplateSections {
			return template
		}
	}
	return models.TemplateDefault
}

func firstEnabledLinks(links []models.CustomLink, limit int) datatypes.JSONSlice[models.CustomLink] {
	out := make(datatypes.JSONSlice[models.CustomLink], 0, limit)
	for _, l := range links {
		if !l.Enabled {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, l)
	}
	return out
}
