package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/lynqit/lynqit/app/models"
)

var testNow = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

func TestContrastColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFFFFF", "#000"},
		{"#fff", "#000"},
		{"#000000", "#FFF"},
		{"#1DB954", "#000"},
		{"#0A66C2", "#FFF"},
		{"#808080", "#000"},
		{"#7F7F7F", "#FFF"},
		{"geen-kleur", "#FFF"},
		{"", "#FFF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContrastColor(tt.in), tt.in)
	}
}

func TestSpotifyEmbedURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF?si=abc", "https://open.spotify.com/embed/artist/0OdUWJ0sBjDrqHygGUXeCF"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC#frag", "https://open.spotify.com/embed/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", "https://open.spotify.com/embed/playlist/37i9dQZF1DXcBWIGoYBM5M"},
		{"https://open.spotify.com/intl-nl/album/1ATL5GLyefJaxhQzSPVrLX", "https://open.spotify.com/embed/album/1ATL5GLyefJaxhQzSPVrLX"},
		{"https://open.spotify.com/embed/artist/0OdUWJ0sBjDrqHygGUXeCF", "https://open.spotify.com/embed/artist/0OdUWJ0sBjDrqHygGUXeCF"},
		{"https://example.com/artist/123", "https://example.com/artist/123"},
		{"https://open.spotify.com/", "https://open.spotify.com/"},
		{"geen url", "geen url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SpotifyEmbedURL(tt.in), tt.in)
	}
}

func TestYouTubeID(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ", YouTubeID("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10"))
	assert.Equal(t, "dQw4w9WgXcQ", YouTubeID("https://youtu.be/dQw4w9WgXcQ"))
	assert.Equal(t, "dQw4w9WgXcQ", YouTubeID("https://youtube.com/shorts/dQw4w9WgXcQ"))
	assert.Equal(t, "", YouTubeID("https://cdn.lynqit.nl/intro.mp4"))
	assert.Equal(t,
		"https://www.youtube.com/embed/abc?autoplay=1&mute=1&loop=1&playlist=abc&controls=0",
		YouTubeBackgroundURL("abc"))
}

func TestSafeHref(t *testing.T) {
	assert.Equal(t, "https://lynqit.nl/a?b=c", string(safeHref("https://lynqit.nl/a?b=c")))
	assert.Equal(t, "#", string(safeHref("javascript:alert(1)")))
	assert.Equal(t, "tel:+31612345678", string(telHref("+31 6 1234 5678")))
}

func TestSelectTemplate(t *testing.T) {
	assert.True(t, SelectTemplate(models.TemplateEvents).BottomSocials)
	assert.True(t, SelectTemplate(models.TemplateArtist).Spotify)
	assert.True(t, SelectTemplate(models.TemplateWebshop).Products)
	assert.Equal(t, models.TemplateDefault, SelectTemplate("onbekend").Template)
}

func proPage(template string) *models.LynqitPage {
	p := models.NewLynqitPage("user-1", "demo-pagina")
	p.ID = "page-1"
	p.SubscriptionPlan = "pro"
	p.Template = template
	p.BrandColor = "#FFFFFF"
	p.Intro = "Welkom op mijn pagina"
	p.Telefoonnummer = "+31 6 12345678"
	p.Emailadres = "info@lynqit.nl"
	p.CTAButton = datatypes.NewJSONType(models.CTAButton{Text: "Boek nu", Link: "https://lynqit.nl/boek"})
	p.SocialMedia = datatypes.NewJSONType(models.SocialMedia{Website: "https://lynqit.nl", Instagram: "https://instagram.com/lynqit"})
	p.CustomLinks = datatypes.JSONSlice[models.CustomLink]{
		{Text: "Website", URL: "https://lynqit.nl", Enabled: true},
		{Text: "Verborgen", URL: "https://lynqit.nl/verborgen", Enabled: false},
	}
	p.FeaturedLinks = datatypes.NewJSONType(models.FeaturedLinks{
		Link2: &models.FeaturedLink{Title: "Shop", Link: "https://lynqit.nl/shop"},
	})
	return p
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Options{SiteTitle: "Lynqit", TrackURL: "/api/analytics/track", ClickURL: "/api/analytics/click"})
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, p *models.LynqitPage) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, p, testNow, true))
	return buf.String()
}

func TestRenderDefaultPage(t *testing.T) {
	r := newRenderer(t)
	html := render(t, r, proPage(models.TemplateDefault))

	assert.Contains(t, html, "tel:")
	assert.Contains(t, html, "31612345678\"")
	assert.Contains(t, html, `data-track="phone"`)
	assert.Contains(t, html, `data-track="email"`)
	assert.Contains(t, html, `data-track="cta_boek_nu"`)
	assert.Contains(t, html, `data-track="custom_link_0"`)
	assert.NotContains(t, html, "Verborgen")
	assert.Contains(t, html, `data-track="featured_link_2"`)
	assert.NotContains(t, html, `featured_link_1`)
	assert.Contains(t, html, `data-page-id="page-1"`)
	// CTA text contrasts with the white brand colour
	assert.Contains(t, html, "color: #000")

	// social row follows the platform order, not map order
	assert.Less(t, strings.Index(html, "social_instagram"), strings.Index(html, "social_website"))
}

func TestRenderIsDeterministic(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateDefault)
	p.SocialMedia = datatypes.NewJSONType(models.SocialMedia{
		Instagram: "https://instagram.com/a", Facebook: "https://facebook.com/a", TikTok: "https://tiktok.com/@a",
		YouTube: "https://youtube.com/a", X: "https://x.com/a", Website: "https://a.nl",
	})

	first := render(t, r, p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, render(t, r, p))
	}
}

func TestRenderFreePageHidesGatedBlocks(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateEvents)
	p.SubscriptionPlan = "free"
	p.PromoBanner = datatypes.NewJSONType(models.PromoBanner{Enabled: true, Title: "Zomeractie"})
	p.Events = datatypes.JSONSlice[models.Event]{{Title: "Festival", Visibility: models.Visibility{Enabled: true}}}

	html := render(t, r, p)

	assert.NotContains(t, html, "tel:")
	assert.NotContains(t, html, "mailto:")
	assert.NotContains(t, html, "cta_")
	assert.NotContains(t, html, "Zomeractie")
	assert.NotContains(t, html, "Festival")
	assert.NotContains(t, html, "featured_link")
	assert.Contains(t, html, `data-track="custom_link_0"`)
}

func TestRenderEventsVisibilityWindow(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateEvents)
	later := testNow.Add(time.Hour)
	earlier := testNow.Add(-time.Hour)
	p.Events = datatypes.JSONSlice[models.Event]{
		{Title: "Nu zichtbaar", Date: "2026-06-12", Link: "https://lynqit.nl/tickets", Visibility: models.Visibility{Enabled: true, VisibleFrom: &earlier}},
		{Title: "Nog niet", Visibility: models.Visibility{Enabled: true, VisibleFrom: &later}},
		{Title: "Al voorbij", Visibility: models.Visibility{Enabled: true, VisibleUntil: &testNow}},
		{Title: "Uitgezet", Visibility: models.Visibility{Enabled: false}},
	}

	html := render(t, r, p)

	assert.Contains(t, html, "Nu zichtbaar")
	assert.Contains(t, html, "12 jun 2026")
	assert.Contains(t, html, `data-track="event_0"`)
	assert.NotContains(t, html, "Nog niet")
	assert.NotContains(t, html, "Al voorbij")
	assert.NotContains(t, html, "Uitgezet")
}

func TestRenderArtistShowsAndSpotify(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateArtist)
	p.SpotifyURL = "https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF?si=x"
	p.Shows = datatypes.JSONSlice[models.Show]{
		{Title: "Paradiso", Date: "2026-10-03", Location: "Amsterdam", Link: "https://paradiso.nl", Visibility: models.Visibility{Enabled: true}},
		{Title: "Zonder link", Date: "2026-11-20", Visibility: models.Visibility{Enabled: true}},
	}

	html := render(t, r, p)

	assert.Contains(t, html, "https://open.spotify.com/embed/artist/0OdUWJ0sBjDrqHygGUXeCF")
	assert.Contains(t, html, `data-track="show_0"`)
	assert.NotContains(t, html, `data-track="show_1"`)
	assert.Contains(t, html, "<small>okt</small>")
	assert.Contains(t, html, "<small>nov</small>")
}

func TestRenderWebshopPrices(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateWebshop)
	discount := decimal.RequireFromString("14.95")
	p.Products = datatypes.JSONSlice[models.Product]{
		{Title: "Hoodie", Price: decimal.NewFromInt(30), DiscountPrice: &discount, Link: "https://lynqit.nl/hoodie", Visibility: models.Visibility{Enabled: true}},
		{Title: "Poster", Price: decimal.RequireFromString("9.5"), FromPrice: true, Visibility: models.Visibility{Enabled: true}},
	}

	html := render(t, r, p)

	assert.Contains(t, html, `<span class="strike">€ 30,00</span><span>€ 14,95</span>`)
	assert.Contains(t, html, "vanaf <span>€ 9,50</span>")
	assert.Contains(t, html, `data-track="product_1"`)
}

func TestRenderVideoHeaderOnlyForPro(t *testing.T) {
	r := newRenderer(t)
	p := proPage(models.TemplateDefault)
	p.Header = datatypes.NewJSONType(models.Header{Type: models.HeaderTypeVideo, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})

	assert.Contains(t, render(t, r, p), "youtube.com/embed/dQw4w9WgXcQ")

	p.SubscriptionPlan = "start"
	html := render(t, r, p)
	assert.NotContains(t, html, "<iframe")
	assert.Contains(t, html, `<img src="https://www.youtube.com/watch?v=dQw4w9WgXcQ"`)
}

func TestRenderNotFound(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.RenderNotFound(&buf, "bestaat-niet", testNow))
	assert.Contains(t, buf.String(), "Pagina niet gevonden")
	assert.Contains(t, buf.String(), "bestaat-niet")
	assert.NotContains(t, buf.String(), "sendBeacon")
}

func TestLoadSocialPlatforms(t *testing.T) {
	platforms, err := LoadSocialPlatforms()
	require.NoError(t, err)
	require.NotEmpty(t, platforms)
	assert.Equal(t, "instagram", platforms[0].Key)

	_, err = parseSocialPlatforms([]byte("platforms:\n  - key: x\n  - key: x\n"))
	assert.Error(t, err)
}
