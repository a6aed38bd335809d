package render

import "github.com/lynqit/lynqit/app/models"

// Route describes which body and sections a template renders.
type Route struct {
	Template      string
	Events        bool
	Shows         bool
	Spotify       bool
	Products      bool
	BottomSocials bool
}

// SelectTemplate dispatches on the clamped template name. Unknown names use
// the default layout.
func SelectTemplate(template string) Route {
	switch template {
	case models.TemplateEvents:
		return Route{Template: template, Events: true, BottomSocials: true}
	case models.TemplateArtist:
		return Route{Template: template, Shows: true, Spotify: true}
	case models.TemplateWebshop:
		return Route{Template: template, Products: true}
	default:
		return Route{Template: models.TemplateDefault}
	}
}
