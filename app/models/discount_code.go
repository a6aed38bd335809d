package models

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DiscountTypeFirstPayment = "first_payment"
	DiscountTypeRecurring    = "recurring"
)

var (
	ErrDiscountInactive       = errors.New("discount code is inactive")
	ErrDiscountNotYetValid    = errors.New("discount code is not valid yet")
	ErrDiscountExpired        = errors.New("discount code has expired")
	ErrDiscountExhausted      = errors.New("discount code has reached its usage limit")
	ErrDiscountPlanNotAllowed = errors.New("discount code does not apply to this plan")
)

// DiscountCode is an admin-managed promotion redeemable at checkout.
type DiscountCode struct {
	ID              string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code            string                      `gorm:"type:varchar(64);uniqueIndex;not null" json:"code" validate:"required,min=3,max=64"`
	DiscountType    string                      `gorm:"type:varchar(20);not null" json:"discountType" validate:"oneof=first_payment recurring"`
	DiscountValue   decimal.Decimal             `gorm:"type:numeric(10,2);not null" json:"discountValue"`
	IsPercentage    bool                        `gorm:"default:true" json:"isPercentage"`
	ValidFrom       time.Time                   `gorm:"not null" json:"validFrom"`
	ValidUntil      *time.Time                  `gorm:"default:null" json:"validUntil,omitempty"`
	MaxUses         *int                        `gorm:"default:null" json:"maxUses,omitempty" validate:"omitempty,min=1"`
	UsedCount       int                         `gorm:"not null;default:0" json:"usedCount"`
	Active          bool                        `gorm:"default:true;index" json:"active"`
	ApplicablePlans datatypes.JSONSlice[string] `json:"applicablePlans"`
	Description     string                      `gorm:"type:text" json:"description" validate:"max=500"`
	StripeCouponID  string                      `gorm:"type:varchar(191)" json:"stripeCouponId,omitempty"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (d *DiscountCode) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Code = NormalizeDiscountCode(d.Code)
	return nil
}

// NormalizeDiscountCode upper-cases a code so lookups are case-insensitive.
func NormalizeDiscountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (d *DiscountCode) Validate() error {
	v := validator.New()
	if err := v.Struct(d); err != nil {
		return err
	}
	if !d.DiscountValue.IsPositive() {
		return errors.New("discount value must be positive")
	}
	if d.IsPercentage && d.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percentage discount cannot exceed 100")
	}
	if d.ValidUntil != nil && d.ValidUntil.Before(d.ValidFrom) {
		return errors.New("valid until must be after valid from")
	}
	return nil
}

// CheckRedeemable returns nil when the code may be applied to plan at now.
func (d *DiscountCode) CheckRedeemable(plan string, now time.Time) error {
	if !d.Active {
		return ErrDiscountInactive
	}
	if now.Before(d.ValidFrom) {
		return ErrDiscountNotYetValid
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return ErrDiscountExpired
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return ErrDiscountExhausted
	}
	if !slices.Contains(d.ApplicablePlans, strings.ToLower(strings.TrimSpace(plan))) {
		return ErrDiscountPlanNotAllowed
	}
	return nil
}

// DiscountRedemption records that a code was counted for a subscription.
// The unique pair guarantees a single usedCount increment per subscription.
type DiscountRedemption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DiscountCodeID string    `gorm:"type:varchar(36);not null;index:ux_discount_redemptions_code_sub,unique,priority:1" json:"discountCodeId"`
	SubscriptionID string    `gorm:"type:varchar(191);not null;index:ux_discount_redemptions_code_sub,unique,priority:2" json:"subscriptionId"`
	PageID         string    `gorm:"type:varchar(36);index" json:"pageId"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
