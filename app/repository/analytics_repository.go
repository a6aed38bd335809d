package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lynqit/lynqit/app/models"
)

// analyticsRepository implements the AnalyticsRepository interface
type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository instance
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CreatePageView(view *models.PageView) error {
	return r.db.Create(view).Error
}

func (r *analyticsRepository) CreateClick(click *models.Click) error {
	return r.db.Create(click).Error
}

// GetDailyViews returns views per day for a page within [startDate, endDate]
func (r *analyticsRepository) GetDailyViews(pageID string, startDate, endDate time.Time) ([]models.DailyStats, error) {
	return r.daily(&models.PageView{}, pageID, startDate, endDate)
}

// GetDailyClicks returns clicks per day for a page within [startDate, endDate]
func (r *analyticsRepository) GetDailyClicks(pageID string, startDate, endDate time.Time) ([]models.DailyStats, error) {
	return r.daily(&models.Click{}, pageID, startDate, endDate)
}

func (r *analyticsRepository) daily(model interface{}, pageID string, startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string
		Count int64
	}
	day := dayExpr(r.db, "created_at")
	err := r.db.Model(model).
		Select(day+" as date, COUNT(*) as count").
		Where("page_id = ? AND created_at BETWEEN ? AND ?", pageID, startDate, endDate).
		Group(day).
		Order("date").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	stats := make([]models.DailyStats, len(results))
	for i, result := range results {
		stats[i] = models.DailyStats{Date: result.Date, Count: int(result.Count)}
	}
	return stats, nil
}

// GetClicksByType groups a page's clicks by their tracking tag
func (r *analyticsRepository) GetClicksByType(pageID string, startDate, endDate time.Time) ([]models.ClickTypeStats, error) {
	var results []models.ClickTypeStats
	err := r.db.Model(&models.Click{}).
		Select("click_type, COUNT(*) as count").
		Where("page_id = ? AND created_at BETWEEN ? AND ?", pageID, startDate, endDate).
		Group("click_type").
		Order("count DESC, click_type").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get click types: %w", err)
	}
	return results, nil
}

// CountViewsSince counts views across all pages
func (r *analyticsRepository) CountViewsSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.PageView{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CountClicksSince counts clicks across all pages
func (r *analyticsRepository) CountClicksSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Click{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
