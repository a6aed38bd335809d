package editor

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
)

func str(s string) *string { return &s }

func links(n int) []models.CustomLink {
	out := make([]models.CustomLink, n)
	for i := range out {
		out[i] = models.CustomLink{Text: "link " + strconv.Itoa(i), URL: "https://lynqit.nl/" + strconv.Itoa(i), Enabled: true}
	}
	return out
}

func TestApplyReplacesOnlyPresentGroups(t *testing.T) {
	page := models.NewLynqitPage("user-1", "mijn-pagina")
	page.Intro = "oud"
	page.CustomLinks = append(page.CustomLinks, models.CustomLink{Text: "oud", URL: "https://oud.nl", Enabled: true})

	err := Apply(page, &PageUpdate{Theme: str("light"), Intro: str("  nieuw  ")}, entitlements.For(entitlements.PlanFree))
	require.NoError(t, err)

	assert.Equal(t, models.ThemeLight, page.Theme)
	assert.Equal(t, "nieuw", page.Intro)
	require.Len(t, page.CustomLinks, 1)
	assert.Equal(t, "oud", page.CustomLinks[0].Text)

	err = Apply(page, &PageUpdate{CustomLinks: links(2)}, entitlements.For(entitlements.PlanFree))
	require.NoError(t, err)
	assert.Len(t, page.CustomLinks, 2)
}

func TestApplyFreeCustomLinkCap(t *testing.T) {
	page := models.NewLynqitPage("user-1", "mijn-pagina")

	require.NoError(t, Apply(page, &PageUpdate{CustomLinks: links(5)}, entitlements.For(entitlements.PlanFree)))

	err := Apply(page, &PageUpdate{CustomLinks: links(6)}, entitlements.For(entitlements.PlanFree))
	var ent *EntitlementError
	require.True(t, errors.As(err, &ent))
	assert.Contains(t, ent.Message, "maximaal 5 links")
	assert.Len(t, page.CustomLinks, 5)

	require.NoError(t, Apply(page, &PageUpdate{CustomLinks: links(12)}, entitlements.For(entitlements.PlanStart)))
	assert.Len(t, page.CustomLinks, 12)
}

func TestAuthorizeGates(t *testing.T) {
	page := models.NewLynqitPage("user-1", "mijn-pagina")

	tests := []struct {
		name    string
		plan    entitlements.Plan
		update  PageUpdate
		feature entitlements.Feature
	}{
		{"contact on free", entitlements.PlanFree, PageUpdate{Telefoonnummer: str("0612345678")}, entitlements.FeatureContactInfo},
		{"cta on free", entitlements.PlanFree, PageUpdate{CTAButton: &models.CTAButton{Text: "Boek", Link: "https://lynqit.nl"}}, entitlements.FeatureCTAButton},
		{"featured on free", entitlements.PlanFree, PageUpdate{FeaturedLinks: &models.FeaturedLinks{Link1: &models.FeaturedLink{Title: "a"}}}, entitlements.FeatureFeaturedLinks},
		{"events on free", entitlements.PlanFree, PageUpdate{Events: []models.Event{{Title: "a"}}}, entitlements.FeatureTemplateSections},
		{"spotify on free", entitlements.PlanFree, PageUpdate{SpotifyURL: str("https://open.spotify.com/artist/1")}, entitlements.FeatureTemplateSections},
		{"template on start", entitlements.PlanStart, PageUpdate{Template: str("artist")}, entitlements.FeatureTemplateChoice},
		{"video on start", entitlements.PlanStart, PageUpdate{Header: &models.Header{Type: "video", URL: "https://cdn.lynqit.nl/a.mp4"}}, entitlements.FeatureVideoHeader},
		{"promo on start", entitlements.PlanStart, PageUpdate{PromoBanner: &models.PromoBanner{Enabled: true}}, entitlements.FeaturePromoBanner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Authorize(page, entitlements.For(tt.plan))
			var ent *EntitlementError
			require.True(t, errors.As(err, &ent), "expected entitlement error, got %v", err)
			assert.Equal(t, tt.feature, ent.Feature)
			assert.NotEmpty(t, ent.Message)

			assert.NoError(t, tt.update.Authorize(page, entitlements.For(entitlements.PlanPro)))
		})
	}
}

func TestAuthorizeAllowsClearing(t *testing.T) {
	page := models.NewLynqitPage("user-1", "mijn-pagina")
	page.Template = models.TemplateArtist
	free := entitlements.For(entitlements.PlanFree)

	u := PageUpdate{
		Telefoonnummer: str(""),
		Emailadres:     str(""),
		CTAButton:      &models.CTAButton{},
		FeaturedLinks:  &models.FeaturedLinks{},
		Events:         []models.Event{},
		Template:       str(models.TemplateDefault),
		Header:         &models.Header{Type: models.HeaderTypeImage},
		PromoBanner:    &models.PromoBanner{Enabled: false, Title: "bewaard"},
	}
	assert.NoError(t, u.Authorize(page, free))

	// keeping the stored template is not a template change
	assert.NoError(t, (&PageUpdate{Template: str(models.TemplateArtist)}).Authorize(page, entitlements.For(entitlements.PlanStart)))
}

func TestValidateDutchMessages(t *testing.T) {
	tests := []struct {
		name    string
		update  PageUpdate
		field   string
		message string
	}{
		{"bad colour", PageUpdate{BrandColor: str("rood")}, "brandColor", "geldige kleurcode"},
		{"bad email", PageUpdate{Emailadres: str("geen-mail")}, "emailadres", "geldig e-mailadres"},
		{"bad link url", PageUpdate{CustomLinks: []models.CustomLink{{Text: "a", URL: "geen url"}}}, "customLinks[0].url", "geldige URL"},
		{"missing link text", PageUpdate{CustomLinks: []models.CustomLink{{URL: "https://lynqit.nl"}}}, "customLinks[0].text", "verplicht"},
		{"bad theme", PageUpdate{Theme: str("roze")}, "theme", "dark light"},
		{"bad event date", PageUpdate{Events: []models.Event{{Title: "a", Date: "12-06-2026"}}}, "events[0].date", "JJJJ-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Message, tt.message)
		})
	}

	assert.NoError(t, (&PageUpdate{BrandColor: str(""), Logo: str("")}).Validate())
}

func TestValidateVisibilityWindow(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	until := from.Add(-time.Hour)
	u := PageUpdate{Shows: []models.Show{{Title: "a", Visibility: models.Visibility{Enabled: true, VisibleFrom: &from, VisibleUntil: &until}}}}

	var verr *ValidationError
	require.True(t, errors.As(u.Validate(), &verr))
	assert.Equal(t, "shows", verr.Field)
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, ValidateSlug(NormalizeSlug("  Mijn-Pagina ")))
	assert.Error(t, ValidateSlug("admin"))
	assert.Error(t, ValidateSlug("a"))
	assert.Error(t, ValidateSlug("met spatie"))
}
