package viewmodel

import "html/template"

// Page is everything the public templates need, already clamped to the plan,
// filtered by visibility and resolved to display strings.
type Page struct {
	Layout

	Slug     string
	Template string
	Logo     string
	Intro    string

	BrandColor   string
	CTATextColor string

	Header   *Header
	Contact  []Action
	Links    []Action
	Promo    *Promo
	Featured []Featured

	Events   []Event
	Shows    []Show
	Products []Product
	Spotify  string

	Socials       []Social
	BottomSocials bool
}

// Header is the top media region. Exactly one of the media flags is set.
type Header struct {
	URL       string
	IsImage   bool
	IsVideo   bool
	IsYouTube bool
	EmbedURL  string
}

// Action is a tracked link: contact buttons, CTA and custom links.
// Href is pre-sanitized so tel: links survive template URL filtering.
type Action struct {
	Label string
	Href  template.URL
	Track string
}

type Promo struct {
	Title           string
	Description     string
	ButtonText      string
	ButtonLink      string
	BackgroundImage string
	Track           string
}

type Featured struct {
	Image string
	Title string
	Link  string
	Track string
}

type Event struct {
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
	Image       string
	Link        string
	ButtonText  string
	Track       string
}

// Show is an artist show with its date split for the date badge.
type Show struct {
	Title    string
	Location string
	Link     string
	Day      string
	Month    string
	Year     string
	Track    string
}

type Product struct {
	Title         string
	Image         string
	Link          string
	Price         string
	OriginalPrice string
	HasDiscount   bool
	FromPrice     bool
	Track         string
}

// Social is one icon of the social row.
type Social struct {
	Platform string
	Label    string
	URL      string
	Color    string
	Icon     string
	Track    string
}
