package editor

import (
	"fmt"

	"github.com/lynqit/lynqit/internal/pkg/entitlements"
)

// ValidationError is a rejected input value. Message is shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// EntitlementError is an edit the page's plan does not allow.
type EntitlementError struct {
	Feature entitlements.Feature
	Message string
}

func (e *EntitlementError) Error() string {
	return e.Message
}

var entitlementMessages = map[entitlements.Feature]string{
	entitlements.FeatureContactInfo:      "Contactgegevens zijn beschikbaar vanaf het Start-abonnement",
	entitlements.FeatureCTAButton:        "De call-to-action knop is beschikbaar vanaf het Start-abonnement",
	entitlements.FeatureFeaturedLinks:    "Uitgelichte links zijn beschikbaar vanaf het Start-abonnement",
	entitlements.FeatureTemplateSections: "Evenementen, shows, producten en Spotify zijn beschikbaar vanaf het Start-abonnement",
	entitlements.FeatureTemplateChoice:   "Een ander template kiezen is alleen mogelijk met het Pro-abonnement",
	entitlements.FeatureVideoHeader:      "Een video als header is alleen mogelijk met het Pro-abonnement",
	entitlements.FeaturePromoBanner:      "De promotiebanner is alleen beschikbaar met het Pro-abonnement",
}

func denied(feature entitlements.Feature) *EntitlementError {
	return &EntitlementError{Feature: feature, Message: entitlementMessages[feature]}
}

func tooManyLinks(limit int) *EntitlementError {
	return &EntitlementError{
		Message: fmt.Sprintf("Met het gratis abonnement kun je maximaal %d links toevoegen", limit),
	}
}
