package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lynqit/lynqit/app/models"
)

// discountCodeRepository implements the DiscountCodeRepository interface
type discountCodeRepository struct {
	db *gorm.DB
}

// NewDiscountCodeRepository creates a new discount code repository instance
func NewDiscountCodeRepository(db *gorm.DB) DiscountCodeRepository {
	return &discountCodeRepository{db: db}
}

// Create creates a new discount code
func (r *discountCodeRepository) Create(code *models.DiscountCode) error {
	return r.db.Create(code).Error
}

// GetByID retrieves a discount code by its ID
func (r *discountCodeRepository) GetByID(id string) (*models.DiscountCode, error) {
	var code models.DiscountCode
	err := r.db.Where("id = ?", id).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// GetByCode looks a code up case-insensitively
func (r *discountCodeRepository) GetByCode(code string) (*models.DiscountCode, error) {
	normalized := models.NormalizeDiscountCode(code)
	if normalized == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var dc models.DiscountCode
	err := r.db.Where("code = ?", normalized).First(&dc).Error
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// List returns all discount codes, newest first
func (r *discountCodeRepository) List() ([]models.DiscountCode, error) {
	var codes []models.DiscountCode
	err := r.db.Order("created_at DESC").Find(&codes).Error
	return codes, err
}

// Update saves the admin-editable fields of a code. UsedCount is owned by RedeemOnce.
func (r *discountCodeRepository) Update(code *models.DiscountCode) error {
	code.Code = models.NormalizeDiscountCode(code.Code)
	res := r.db.Model(&models.DiscountCode{}).
		Where("id = ?", code.ID).
		Select("*").
		Omit("id", "used_count", "created_at").
		Updates(code)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a discount code and its redemption records
func (r *discountCodeRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discount_code_id = ?", id).Delete(&models.DiscountRedemption{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.DiscountCode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SetStripeCouponID stores the provider coupon a code was translated to
func (r *discountCodeRepository) SetStripeCouponID(id, couponID string) error {
	return r.db.Model(&models.DiscountCode{}).Where("id = ?", id).Update("stripe_coupon_id", couponID).Error
}

// RedeemOnce counts a redemption of codeID for subscriptionID. Repeated calls
// for the same pair are no-ops; the returned bool reports whether the count moved.
func (r *discountCodeRepository) RedeemOnce(codeID, subscriptionID, pageID string) (bool, error) {
	if strings.TrimSpace(codeID) == "" || strings.TrimSpace(subscriptionID) == "" {
		return false, nil
	}
	counted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		redemption := models.DiscountRedemption{
			DiscountCodeID: codeID,
			SubscriptionID: subscriptionID,
			PageID:         pageID,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&redemption)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		upd := tx.Model(&models.DiscountCode{}).
			Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", codeID).
			Update("used_count", gorm.Expr("used_count + 1"))
		if upd.Error != nil {
			return upd.Error
		}
		counted = upd.RowsAffected > 0
		return nil
	})
	return counted, err
}
