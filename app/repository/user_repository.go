package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByStripeCustomerID retrieves the user linked to a Stripe customer
func (r *userRepository) GetByStripeCustomerID(customerID string) (*models.User, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser returns the user for an authenticated identity, creating it on
// first sight. When id is empty the lookup is by email only.
func (r *userRepository) EnsureUser(id, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if id == "" && email == "" {
		return nil, errors.New("id or email is required")
	}

	var user models.User
	var err error
	if id != "" {
		err = r.db.Where("id = ?", id).First(&user).Error
	} else {
		err = r.db.Where("email = ?", email).First(&user).Error
	}
	if err == nil {
		if email != "" && user.Email != email && id != "" {
			user.Email = email
			if err := r.db.Model(&user).Update("email", email).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if email == "" {
		return nil, gorm.ErrRecordNotFound
	}

	user = models.User{ID: id, Email: email, Role: models.ROLE_USER}
	if err := r.db.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return r.GetByEmail(email)
		}
		return nil, err
	}
	return &user, nil
}

// SetStripeCustomerID links a Stripe customer to the user
func (r *userRepository) SetStripeCustomerID(userID, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("stripe_customer_id", customerID).Error
}

// UpdateRole changes a user's role
func (r *userRepository) UpdateRole(userID, role string) error {
	if role != models.ROLE_ADMIN && role != models.ROLE_USER {
		return fmt.Errorf("invalid role %q", role)
	}
	res := r.db.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// GetDailyStats returns daily user registration statistics for a date range
func (r *userRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string
		Count int64
	}

	day := dayExpr(r.db, "created_at")
	err := r.db.Model(&models.User{}).
		Select(day+" as date, COUNT(*) as count").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group(day).
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily user stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{Date: result.Date, Count: int(result.Count)}
	}
	return dailyStats, nil
}
