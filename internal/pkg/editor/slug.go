package editor

import (
	"strings"

	"github.com/lynqit/lynqit/app/models"
)

// reservedSlugs collide with application routes.
var reservedSlugs = map[string]bool{
	"api":     true,
	"admin":   true,
	"docs":    true,
	"health":  true,
	"metrics": true,
	"static":  true,
	"public":  true,
	"login":   true,
	"logout":  true,
	"signup":  true,
	"pricing": true,
	"www":     true,
}

// NormalizeSlug lowercases and trims a requested slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug checks format and reserved names of an already normalized slug.
func ValidateSlug(slug string) error {
	if !models.IsValidSlug(slug) {
		return &ValidationError{
			Field:   "slug",
			Message: "De URL mag alleen kleine letters, cijfers en streepjes bevatten (3 tot 50 tekens) en niet beginnen of eindigen met een streepje",
		}
	}
	if reservedSlugs[slug] {
		return &ValidationError{Field: "slug", Message: "Deze URL is gereserveerd, kies een andere"}
	}
	return nil
}
