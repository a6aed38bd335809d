package models

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	SettingSiteTitle            = "site_title"
	SettingAnalyticsEnabled     = "analytics_enabled"
	SettingStripeSecretKey      = "stripe_secret_key"
	SettingStripePublishableKey = "stripe_publishable_key"
	SettingStripeWebhookSecret  = "stripe_webhook_secret"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null;default:'string'" json:"type" validate:"required"` // string, boolean, secret
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings is the in-memory view of the settings table.
// Provider keys fall back to the defaults passed to LoadSettings.
type AppSettings struct {
	SiteTitle            string `json:"site_title" validate:"required,min=1,max=255"`
	AnalyticsEnabled     bool   `json:"analytics_enabled"`
	StripeSecretKey      string `json:"-"`
	StripePublishableKey string `json:"stripe_publishable_key"`
	StripeWebhookSecret  string `json:"-"`
	mu                   sync.RWMutex
}

// Global settings instance
var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// GetAppSettings returns the current application settings
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// SetAppSettings replaces the in-memory settings without touching the database.
func SetAppSettings(s *AppSettings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	appSettings = s
}

// LoadSettings loads settings from database into memory, starting from defaults.
func LoadSettings(db *gorm.DB, defaults *AppSettings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	loaded := &AppSettings{AnalyticsEnabled: true}
	if defaults != nil {
		loaded.SiteTitle = defaults.SiteTitle
		loaded.AnalyticsEnabled = defaults.AnalyticsEnabled
		loaded.StripeSecretKey = defaults.StripeSecretKey
		loaded.StripePublishableKey = defaults.StripePublishableKey
		loaded.StripeWebhookSecret = defaults.StripeWebhookSecret
	}
	if loaded.SiteTitle == "" {
		loaded.SiteTitle = "Lynqit"
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		appSettings = loaded
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		if setting.Value == "" {
			continue
		}
		switch setting.Key {
		case SettingSiteTitle:
			loaded.SiteTitle = setting.Value
		case SettingAnalyticsEnabled:
			loaded.AnalyticsEnabled = setting.Value == "true"
		case SettingStripeSecretKey:
			loaded.StripeSecretKey = setting.Value
		case SettingStripePublishableKey:
			loaded.StripePublishableKey = setting.Value
		case SettingStripeWebhookSecret:
			loaded.StripeWebhookSecret = setting.Value
		}
	}

	appSettings = loaded
	return nil
}

// SaveSettings persists the given settings and swaps the in-memory copy.
// Empty secrets are skipped so an admin form never wipes a stored key.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	values := []Setting{
		{Key: SettingSiteTitle, Value: settings.GetSiteTitle(), Type: "string"},
		{Key: SettingAnalyticsEnabled, Value: fmt.Sprintf("%t", settings.IsAnalyticsEnabled()), Type: "boolean"},
		{Key: SettingStripePublishableKey, Value: settings.StripePublishableKey, Type: "string"},
		{Key: SettingStripeSecretKey, Value: settings.StripeSecretKey, Type: "secret"},
		{Key: SettingStripeWebhookSecret, Value: settings.StripeWebhookSecret, Type: "secret"},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, value := range values {
			if value.Type == "secret" && value.Value == "" {
				continue
			}
			var setting Setting
			err := tx.Where("setting_key = ?", value.Key).First(&setting).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v := value
				if err := tx.Create(&v).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", value.Key, err)
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to query setting %s: %w", value.Key, err)
			}
			setting.Value = value.Value
			setting.Type = value.Type
			if err := tx.Save(&setting).Error; err != nil {
				return fmt.Errorf("failed to update setting %s: %w", value.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()
	if appSettings != nil {
		if settings.StripeSecretKey == "" {
			settings.StripeSecretKey = appSettings.GetStripeSecretKey()
		}
		if settings.StripeWebhookSecret == "" {
			settings.StripeWebhookSecret = appSettings.GetStripeWebhookSecret()
		}
	}
	appSettings = settings
	return nil
}

// Validate validates the settings
func (s *AppSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// GetSiteTitle returns the site title
func (s *AppSettings) GetSiteTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SiteTitle
}

// IsAnalyticsEnabled returns whether visitor tracking is recorded
func (s *AppSettings) IsAnalyticsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AnalyticsEnabled
}

func (s *AppSettings) GetStripeSecretKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StripeSecretKey
}

func (s *AppSettings) GetStripePublishableKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StripePublishableKey
}

func (s *AppSettings) GetStripeWebhookSecret() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.StripeWebhookSecret
}
