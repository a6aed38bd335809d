package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
)

// Columns owned by billing or the counter flush; editor updates never write them.
var pageProtectedColumns = []string{
	"id", "user_id", "slug", "created_at",
	"subscription_plan", "subscription_status",
	"stripe_subscription_id", "stripe_customer_id",
	"cancel_at_period_end", "current_period_end",
	"view_count", "click_count",
}

// pageRepository implements the PageRepository interface
type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository creates a new page repository instance
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

// Create inserts a page. A taken slug yields ErrSlugTaken and nothing is written.
func (r *pageRepository) Create(page *models.LynqitPage) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LynqitPage{}).Where("slug = ?", page.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSlugTaken
		}
		if err := tx.Create(page).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrSlugTaken
			}
			return err
		}
		return nil
	})
}

// GetByID retrieves a page by its ID
func (r *pageRepository) GetByID(id string) (*models.LynqitPage, error) {
	var page models.LynqitPage
	err := r.db.Where("id = ?", id).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBySlug retrieves a page by its slug
func (r *pageRepository) GetBySlug(slug string) (*models.LynqitPage, error) {
	var page models.LynqitPage
	err := r.db.Where("slug = ?", slug).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByUserID lists the pages owned by a user, newest first
func (r *pageRepository) GetByUserID(userID string) ([]models.LynqitPage, error) {
	var pages []models.LynqitPage
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&pages).Error
	return pages, err
}

// GetByStripeSubscriptionID retrieves the page paid for by a subscription
func (r *pageRepository) GetByStripeSubscriptionID(subscriptionID string) (*models.LynqitPage, error) {
	if subscriptionID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var page models.LynqitPage
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Update writes the editable columns if the stored version still equals
// expectedVersion, and bumps the version.
func (r *pageRepository) Update(page *models.LynqitPage, expectedVersion int) error {
	page.Version = expectedVersion + 1
	res := r.db.Model(&models.LynqitPage{}).
		Where("id = ? AND version = ?", page.ID, expectedVersion).
		Select("*").
		Omit(pageProtectedColumns...).
		Updates(page)
	if res.Error != nil {
		page.Version = expectedVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		page.Version = expectedVersion
		var count int64
		if err := r.db.Model(&models.LynqitPage{}).Where("id = ?", page.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// UpdateBilling writes plan, status and subscription mirror fields only.
func (r *pageRepository) UpdateBilling(pageID string, state BillingState) error {
	updates := map[string]interface{}{
		"subscription_plan":    state.Plan,
		"subscription_status":  state.Status,
		"cancel_at_period_end": state.CancelAtPeriodEnd,
		"current_period_end":   state.CurrentPeriodEnd,
		"version":              gorm.Expr("version + 1"),
	}
	if state.StripeSubscriptionID != "" {
		updates["stripe_subscription_id"] = state.StripeSubscriptionID
	}
	if state.StripeCustomerID != "" {
		updates["stripe_customer_id"] = state.StripeCustomerID
	}
	res := r.db.Model(&models.LynqitPage{}).Where("id = ?", pageID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a page by its ID
func (r *pageRepository) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&models.LynqitPage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SlugExists checks if a slug already exists
func (r *pageRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.LynqitPage{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// ListExpiredCancellations returns paid pages whose cancel-at-period-end
// subscription has run past its period end.
func (r *pageRepository) ListExpiredCancellations(now time.Time, limit int) ([]models.LynqitPage, error) {
	var pages []models.LynqitPage
	err := r.db.
		Where("cancel_at_period_end = ? AND current_period_end IS NOT NULL AND current_period_end < ? AND subscription_plan <> ?", true, now, "free").
		Order("current_period_end").
		Limit(limit).
		Find(&pages).Error
	return pages, err
}

// Count returns the total number of pages
func (r *pageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.LynqitPage{}).Count(&count).Error
	return count, err
}

// CountByPlan returns page counts keyed by subscription plan
func (r *pageRepository) CountByPlan() (map[string]int64, error) {
	var rows []struct {
		SubscriptionPlan string
		Count            int64
	}
	err := r.db.Model(&models.LynqitPage{}).
		Select("subscription_plan, COUNT(*) as count").
		Group("subscription_plan").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{"free": 0, "start": 0, "pro": 0}
	for _, row := range rows {
		out[row.SubscriptionPlan] = row.Count
	}
	return out, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
