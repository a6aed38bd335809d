package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
)

var (
	// ErrSlugTaken is returned when a page slug is already in use.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrVersionConflict is returned when a page changed since it was read.
	ErrVersionConflict = errors.New("page was modified concurrently")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	EnsureUser(id, email string) (*models.User, error)
	SetStripeCustomerID(userID, customerID string) error
	UpdateRole(userID, role string) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// BillingState carries the subscription fields billing is allowed to write.
type BillingState struct {
	Plan                 string
	Status               string
	StripeSubscriptionID string
	StripeCustomerID     string
	CancelAtPeriodEnd    bool
	CurrentPeriodEnd     *time.Time
}

// PageRepository defines the interface for page-related operations
type PageRepository interface {
	Create(page *models.LynqitPage) error
	GetByID(id string) (*models.LynqitPage, error)
	GetBySlug(slug string) (*models.LynqitPage, error)
	GetByUserID(userID string) ([]models.LynqitPage, error)
	GetByStripeSubscriptionID(subscriptionID string) (*models.LynqitPage, error)
	Update(page *models.LynqitPage, expectedVersion int) error
	UpdateBilling(pageID string, state BillingState) error
	Delete(id string) error
	SlugExists(slug string) (bool, error)
	ListExpiredCancellations(now time.Time, limit int) ([]models.LynqitPage, error)
	Count() (int64, error)
	CountByPlan() (map[string]int64, error)
}

// DiscountCodeRepository defines the interface for discount code operations
type DiscountCodeRepository interface {
	Create(code *models.DiscountCode) error
	GetByID(id string) (*models.DiscountCode, error)
	GetByCode(code string) (*models.DiscountCode, error)
	List() ([]models.DiscountCode, error)
	Update(code *models.DiscountCode) error
	Delete(id string) error
	SetStripeCouponID(id, couponID string) error
	RedeemOnce(codeID, subscriptionID, pageID string) (bool, error)
}

// AnalyticsRepository defines the interface for page view and click storage
type AnalyticsRepository interface {
	CreatePageView(view *models.PageView) error
	CreateClick(click *models.Click) error
	GetDailyViews(pageID string, startDate, endDate time.Time) ([]models.DailyStats, error)
	GetDailyClicks(pageID string, startDate, endDate time.Time) ([]models.DailyStats, error)
	GetClicksByType(pageID string, startDate, endDate time.Time) ([]models.ClickTypeStats, error)
	CountViewsSince(since time.Time) (int64, error)
	CountClicksSince(since time.Time) (int64, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Page         PageRepository
	DiscountCode DiscountCodeRepository
	Analytics    AnalyticsRepository
	Setting      SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Page:         NewPageRepository(db),
		DiscountCode: NewDiscountCodeRepository(db),
		Analytics:    NewAnalyticsRepository(db),
		Setting:      NewSettingRepository(db),
	}
}
