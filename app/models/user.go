package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// User mirrors an identity issued by Supabase Auth. The ID is the auth uid.
type User struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email            string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	Name             string    `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Role             string    `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	StripeCustomerID string    `gorm:"type:varchar(191);index" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = ROLE_USER
	}
	return nil
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == ROLE_ADMIN
}

// NormalizeEmail lower-cases and trims an e-mail address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
