package counter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/cache/cachetest"
	"github.com/lynqit/lynqit/internal/pkg/database/dbtest"
)

func TestFlushAppliesPendingCounts(t *testing.T) {
	rdb := cachetest.New(t)
	db := dbtest.New(t)
	ctx := context.Background()

	a := models.NewLynqitPage("user-1", "pagina-a")
	b := models.NewLynqitPage("user-1", "pagina-b")
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Create(b).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, AddPageView(ctx, a.ID))
	}
	require.NoError(t, AddPageView(ctx, b.ID))
	require.NoError(t, AddClick(ctx, a.ID))

	require.NoError(t, Flush(ctx, rdb, db))

	var got models.LynqitPage
	require.NoError(t, db.First(&got, "id = ?", a.ID).Error)
	assert.Equal(t, int64(3), got.ViewCount)
	assert.Equal(t, int64(1), got.ClickCount)
	require.NoError(t, db.First(&got, "id = ?", b.ID).Error)
	assert.Equal(t, int64(1), got.ViewCount)
	assert.Equal(t, int64(0), got.ClickCount)

	// drained; a second flush changes nothing
	require.NoError(t, Flush(ctx, rdb, db))
	require.NoError(t, db.First(&got, "id = ?", a.ID).Error)
	assert.Equal(t, int64(3), got.ViewCount)

	n, err := rdb.Exists(ctx, pageViewsKey, pageClicksKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushWithoutPendingCounts(t *testing.T) {
	rdb := cachetest.New(t)
	db := dbtest.New(t)
	assert.NoError(t, Flush(context.Background(), rdb, db))
}
