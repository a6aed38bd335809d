package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/cache/cachetest"
	"github.com/lynqit/lynqit/internal/pkg/database/dbtest"
)

func seed(t *testing.T, repos *repository.Repositories, now time.Time) {
	t.Helper()

	_, err := repos.User.EnsureUser("u1", "een@lynqit.nl")
	require.NoError(t, err)
	_, err = repos.User.EnsureUser("u2", "twee@lynqit.nl")
	require.NoError(t, err)

	free := models.NewLynqitPage("u1", "gratis-pagina")
	require.NoError(t, repos.Page.Create(free))
	pro := models.NewLynqitPage("u2", "pro-pagina")
	pro.SubscriptionPlan = "pro"
	require.NoError(t, repos.Page.Create(pro))

	yesterday := now.Add(-24 * time.Hour)
	require.NoError(t, repos.Analytics.CreatePageView(&models.PageView{PageID: free.ID, CreatedAt: now}))
	require.NoError(t, repos.Analytics.CreatePageView(&models.PageView{PageID: pro.ID, CreatedAt: now}))
	require.NoError(t, repos.Analytics.CreatePageView(&models.PageView{PageID: pro.ID, CreatedAt: yesterday}))
	require.NoError(t, repos.Analytics.CreateClick(&models.Click{PageID: pro.ID, ClickType: "phone", CreatedAt: now}))
}

func TestComputeCountsToday(t *testing.T) {
	repos := repository.NewRepositories(dbtest.New(t))
	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)
	seed(t, repos, now)

	s := NewService(repos)
	s.now = func() time.Time { return now }

	data, err := s.Compute()
	require.NoError(t, err)
	assert.Equal(t, int64(2), data.TotalUsers)
	assert.Equal(t, int64(2), data.TotalPages)
	assert.Equal(t, int64(1), data.PagesByPlan["free"])
	assert.Equal(t, int64(1), data.PagesByPlan["pro"])
	assert.Equal(t, int64(0), data.PagesByPlan["start"])
	assert.Equal(t, int64(2), data.ViewsToday)
	assert.Equal(t, int64(1), data.ClicksToday)
}

func TestGetServesCachedCopyUntilReset(t *testing.T) {
	cachetest.New(t)

	repos := repository.NewRepositories(dbtest.New(t))
	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)
	seed(t, repos, now)

	s := NewService(repos)
	s.now = func() time.Time { return now }

	first, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.TotalPages)

	require.NoError(t, repos.Page.Create(models.NewLynqitPage("u1", "derde-pagina")))

	cached, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.TotalPages)

	s.ResetCacheUpdateTimer()
	fresh, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.TotalPages)
}
