package render

import (
	"html/template"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
	"github.com/lynqit/lynqit/internal/pkg/viewmodel"
)

var dutchMonths = [...]string{"jan", "feb", "mrt", "apr", "mei", "jun", "jul", "aug", "sep", "okt", "nov", "dec"}

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".m4v": true, ".ogv": true}

// Options carries the request-independent inputs of a render.
type Options struct {
	SiteTitle string
	TrackURL  string
	ClickURL  string
	// Tracking disables the analytics beacons when false.
	Tracking bool
}

// BuildView clamps page to its plan and resolves it into display data for now.
func BuildView(page *models.LynqitPage, now time.Time, platforms []SocialPlatform, opts Options) *viewmodel.Page {
	p := entitlements.Clamp(page)
	route := SelectTemplate(p.Template)

	bg := orDefault(p.BackgroundColor, defaultBackground(p.Theme))
	brand := orDefault(p.BrandColor, "#FFFFFF")
	ctaText := ContrastColor(brand)
	if p.CTATextColor != "" {
		ctaText = orDefault(p.CTATextColor, ctaText)
	}

	vm := &viewmodel.Page{
		Layout: viewmodel.Layout{
			Title:           p.Slug,
			Description:     firstLine(p.Intro),
			SiteTitle:       opts.SiteTitle,
			Theme:           p.Theme,
			Year:            now.Year(),
			BackgroundColor: bg,
			TextColor:       ContrastColor(bg),
		},
		Slug:          p.Slug,
		Template:      route.Template,
		Logo:          p.Logo,
		Intro:         p.Intro,
		BrandColor:    brand,
		CTATextColor:  ctaText,
		Header:        buildHeader(p.Header.Data()),
		BottomSocials: route.BottomSocials,
	}
	if opts.Tracking {
		vm.PageID = p.ID
		vm.TrackURL = opts.TrackURL
		vm.ClickURL = opts.ClickURL
	}

	if p.Telefoonnummer != "" {
		vm.Contact = append(vm.Contact, viewmodel.Action{Label: p.Telefoonnummer, Href: telHref(p.Telefoonnummer), Track: "phone"})
	}
	if p.Emailadres != "" {
		vm.Contact = append(vm.Contact, viewmodel.Action{Label: p.Emailadres, Href: safeHref("mailto:" + p.Emailadres), Track: "email"})
	}
	if cta := p.CTAButton.Data(); cta.IsSet() {
		vm.Contact = append(vm.Contact, viewmodel.Action{Label: cta.Text, Href: safeHref(cta.Link), Track: "cta_" + trackToken(cta.Text)})
	}

	for i, l := range p.CustomLinks {
		if !l.Enabled {
			continue
		}
		vm.Links = append(vm.Links, viewmodel.Action{Label: l.Text, Href: safeHref(l.URL), Track: "custom_link_" + strconv.Itoa(i)})
	}

	if promo := p.PromoBanner.Data(); promo.Enabled {
		vm.Promo = &viewmodel.Promo{
			Title:           promo.Title,
			Description:     promo.Description,
			ButtonText:      promo.ButtonText,
			ButtonLink:      promo.ButtonLink,
			BackgroundImage: promo.BackgroundImage,
			Track:           "promo_banner",
		}
	}

	for i, slot := range p.FeaturedLinks.Data().Slots() {
		if slot == nil {
			continue
		}
		vm.Featured = append(vm.Featured, viewmodel.Featured{
			Image: slot.Image,
			Title: slot.Title,
			Link:  slot.Link,
			Track: "featured_link_" + strconv.Itoa(i+1),
		})
	}

	if route.Events {
		vm.Events = buildEvents(p.Events, now)
	}
	if route.Shows {
		vm.Shows = buildShows(p.Shows, now)
	}
	if route.Spotify && p.SpotifyURL != "" {
		vm.Spotify = SpotifyEmbedURL(p.SpotifyURL)
	}
	if route.Products {
		vm.Products = buildProducts(p.Products, now)
	}

	vm.Socials = socialRow(platforms, p.SocialMedia.Data().ByPlatform())
	return vm
}

func buildHeader(h models.Header) *viewmodel.Header {
	if h.URL == "" {
		return nil
	}
	out := &viewmodel.Header{URL: h.URL}
	if h.Type == models.HeaderTypeVideo {
		if id := YouTubeID(h.URL); id != "" {
			out.IsYouTube = true
			out.EmbedURL = YouTubeBackgroundURL(id)
			return out
		}
		if isVideoFile(h.URL) {
			out.IsVideo = true
			return out
		}
	}
	out.IsImage = true
	return out
}

func buildEvents(events []models.Event, now time.Time) []viewmodel.Event {
	var out []viewmodel.Event
	for i, e := range events {
		if !e.VisibleAt(now) {
			continue
		}
		out = append(out, viewmodel.Event{
			Title:       e.Title,
			Date:        dutchDate(e.Date),
			Time:        e.Time,
			Location:    e.Location,
			Description: e.Description,
			Image:       e.Image,
			Link:        e.Link,
			ButtonText:  e.ButtonText,
			Track:       "event_" + strconv.Itoa(i),
		})
	}
	return out
}

func buildShows(shows []models.Show, now time.Time) []viewmodel.Show {
	var out []viewmodel.Show
	for i, s := range shows {
		if !s.VisibleAt(now) {
			continue
		}
		show := viewmodel.Show{
			Title:    s.Title,
			Location: s.Location,
			Link:     s.Link,
			Track:    "show_" + strconv.Itoa(i),
		}
		if d, err := time.Parse("2006-01-02", s.Date); err == nil {
			show.Day = strconv.Itoa(d.Day())
			show.Month = dutchMonths[d.Month()-1]
			show.Year = strconv.Itoa(d.Year())
		}
		out = append(out, show)
	}
	return out
}

func buildProducts(products []models.Product, now time.Time) []viewmodel.Product {
	var out []viewmodel.Product
	for i, p := range products {
		if !p.VisibleAt(now) {
			continue
		}
		item := viewmodel.Product{
			Title:     p.Title,
			Image:     p.Image,
			Link:      p.Link,
			Price:     FormatPrice(p.Price),
			FromPrice: p.FromPrice,
			Track:     "product_" + strconv.Itoa(i),
		}
		if p.HasDiscount() {
			item.HasDiscount = true
			item.OriginalPrice = item.Price
			item.Price = FormatPrice(*p.DiscountPrice)
		}
		out = append(out, item)
	}
	return out
}

// telHref keeps digits and a leading plus.
func telHref(phone string) template.URL {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return template.URL("tel:" + b.String())
}

// safeHref passes http(s), mailto and tel links through and neutralizes anything else.
func safeHref(raw string) template.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto", "tel":
		return template.URL(u.String())
	}
	return "#"
}

// FormatPrice renders an amount in Dutch notation, e.g. "€ 14,95".
func FormatPrice(d decimal.Decimal) string {
	return "€ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func dutchDate(s string) string {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return strconv.Itoa(d.Day()) + " " + dutchMonths[d.Month()-1] + " " + strconv.Itoa(d.Year())
}

func isVideoFile(raw string) bool {
	u := parseLoose(raw)
	if u == nil {
		return false
	}
	return videoExtensions[strings.ToLower(path.Ext(u.Path))]
}

func defaultBackground(theme string) string {
	if theme == models.ThemeLight {
		return "#FFFFFF"
	}
	return "#000000"
}

// trackToken lowercases text and collapses everything but letters and digits to underscores.
func trackToken(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len([]rune(s)) > 160 {
		s = string([]rune(s)[:160])
	}
	return strings.TrimSpace(s)
}
