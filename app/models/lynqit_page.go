package models

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TemplateDefault = "default"
	TemplateEvents  = "events"
	TemplateArtist  = "artist"
	TemplateWebshop = "webshop"

	ThemeDark  = "dark"
	ThemeLight = "light"

	PageStatusActive    = "active"
	PageStatusCancelled = "cancelled"
	PageStatusExpired   = "expired"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,48}[a-z0-9])$`)

// IsValidSlug reports whether s is a lowercase URL-safe slug of 3 to 50 characters.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// LynqitPage is one published link-in-bio page.
type LynqitPage struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"userId"`
	Slug   string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug" validate:"required,min=3,max=50"`

	SubscriptionPlan     string     `gorm:"type:varchar(20);not null;default:'free';index" json:"subscriptionPlan" validate:"oneof=free start pro"`
	SubscriptionStatus   string     `gorm:"type:varchar(20);not null;default:'active'" json:"subscriptionStatus" validate:"oneof=active cancelled expired"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);index" json:"stripeSubscriptionId,omitempty"`
	StripeCustomerID     string     `gorm:"type:varchar(191)" json:"stripeCustomerId,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null;index" json:"currentPeriodEnd,omitempty"`

	Template        string `gorm:"type:varchar(20);not null;default:'default'" json:"template" validate:"oneof=default events artist webshop"`
	Theme           string `gorm:"type:varchar(10);not null;default:'dark'" json:"theme" validate:"oneof=dark light"`
	BrandColor      string `gorm:"type:varchar(7)" json:"brandColor" validate:"omitempty,hexcolor"`
	CTATextColor    string `gorm:"type:varchar(7)" json:"ctaTextColor" validate:"omitempty,hexcolor"`
	BackgroundColor string `gorm:"type:varchar(7)" json:"backgroundColor" validate:"omitempty,hexcolor"`

	Logo           string `gorm:"type:varchar(2048)" json:"logo" validate:"omitempty,url,max=2048"`
	Intro          string `gorm:"type:text" json:"intro" validate:"max=1000"`
	Telefoonnummer string `gorm:"type:varchar(32)" json:"telefoonnummer" validate:"omitempty,max=32"`
	Emailadres     string `gorm:"type:varchar(200)" json:"emailadres" validate:"omitempty,email,max=200"`
	SpotifyURL     string `gorm:"type:varchar(2048)" json:"spotifyUrl" validate:"omitempty,url,max=2048"`

	Header        datatypes.JSONType[Header]        `json:"header"`
	PromoBanner   datatypes.JSONType[PromoBanner]   `json:"promoBanner"`
	CTAButton     datatypes.JSONType[CTAButton]     `gorm:"column:cta_button" json:"ctaButton"`
	FeaturedLinks datatypes.JSONType[FeaturedLinks] `json:"featuredLinks"`
	SocialMedia   datatypes.JSONType[SocialMedia]   `json:"socialMedia"`
	CustomLinks   datatypes.JSONSlice[CustomLink]   `json:"customLinks"`
	Events        datatypes.JSONSlice[Event]        `json:"events"`
	Shows         datatypes.JSONSlice[Show]         `json:"shows"`
	Products      datatypes.JSONSlice[Product]      `json:"products"`

	ViewCount  int64 `gorm:"default:0" json:"viewCount"`
	ClickCount int64 `gorm:"default:0" json:"clickCount"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (LynqitPage) TableName() string {
	return "lynqit_pages"
}

func (p *LynqitPage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// NewLynqitPage returns a free, active page with default presentation.
func NewLynqitPage(userID, slug string) *LynqitPage {
	return &LynqitPage{
		UserID:             userID,
		Slug:               slug,
		SubscriptionPlan:   "free",
		SubscriptionStatus: PageStatusActive,
		Template:           TemplateDefault,
		Theme:              ThemeDark,
		Header:             datatypes.NewJSONType(Header{Type: HeaderTypeImage}),
		CustomLinks:        datatypes.JSONSlice[CustomLink]{},
		Events:             datatypes.JSONSlice[Event]{},
		Shows:              datatypes.JSONSlice[Show]{},
		Products:           datatypes.JSONSlice[Product]{},
		Version:            1,
	}
}

func (p *LynqitPage) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// Copy returns a copy whose list fields do not share backing arrays with p.
func (p *LynqitPage) Copy() *LynqitPage {
	cp := *p
	cp.CustomLinks = append(datatypes.JSONSlice[CustomLink]{}, p.CustomLinks...)
	cp.Events = append(datatypes.JSONSlice[Event]{}, p.Events...)
	cp.Shows = append(datatypes.JSONSlice[Show]{}, p.Shows...)
	cp.Products = append(datatypes.JSONSlice[Product]{}, p.Products...)
	return &cp
}
