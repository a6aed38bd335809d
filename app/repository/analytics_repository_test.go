package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/database/dbtest"
)

func TestAnalyticsDailyAndByType(t *testing.T) {
	db := dbtest.New(t)
	repo := NewAnalyticsRepository(db)

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day1, day1, day2} {
		require.NoError(t, repo.CreatePageView(&models.PageView{PageID: "p1", CreatedAt: at}))
	}
	require.NoError(t, repo.CreatePageView(&models.PageView{PageID: "p2", CreatedAt: day1}))
	require.NoError(t, repo.CreateClick(&models.Click{PageID: "p1", ClickType: "social_instagram", CreatedAt: day1}))
	require.NoError(t, repo.CreateClick(&models.Click{PageID: "p1", ClickType: "social_instagram", CreatedAt: day2}))
	require.NoError(t, repo.CreateClick(&models.Click{PageID: "p1", ClickType: "cta_button", CreatedAt: day2}))

	start := day1.Add(-time.Hour)
	end := day2.Add(time.Hour)

	views, err := repo.GetDailyViews("p1", start, end)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyStats{{Date: "2026-03-01", Count: 2}, {Date: "2026-03-02", Count: 1}}, views)

	clicks, err := repo.GetDailyClicks("p1", start, end)
	require.NoError(t, err)
	assert.Len(t, clicks, 2)

	byType, err := repo.GetClicksByType("p1", start, end)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.Equal(t, models.ClickTypeStats{ClickType: "social_instagram", Count: 2}, byType[0])

	total, err := repo.CountViewsSince(start)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
