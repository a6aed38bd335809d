package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/database/dbtest"
)

func newCode(maxUses *int) *models.DiscountCode {
	return &models.DiscountCode{
		Code:            "welkom10",
		DiscountType:    models.DiscountTypeFirstPayment,
		DiscountValue:   decimal.NewFromInt(10),
		IsPercentage:    true,
		ValidFrom:       time.Now().Add(-time.Hour),
		MaxUses:         maxUses,
		Active:          true,
		ApplicablePlans: []string{"start", "pro"},
	}
}

func TestRedeemOnceIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDiscountCodeRepository(db)

	code := newCode(nil)
	require.NoError(t, repo.Create(code))

	counted, err := repo.RedeemOnce(code.ID, "sub_1", "page-1")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = repo.RedeemOnce(code.ID, "sub_1", "page-1")
	require.NoError(t, err)
	assert.False(t, counted)

	counted, err = repo.RedeemOnce(code.ID, "sub_2", "page-2")
	require.NoError(t, err)
	assert.True(t, counted)

	stored, err := repo.GetByCode("WELKOM10")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsedCount)
}

func TestRedeemOnceRespectsMaxUses(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDiscountCodeRepository(db)

	one := 1
	code := newCode(&one)
	require.NoError(t, repo.Create(code))

	counted, err := repo.RedeemOnce(code.ID, "sub_1", "page-1")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = repo.RedeemOnce(code.ID, "sub_2", "page-2")
	require.NoError(t, err)
	assert.False(t, counted)

	stored, err := repo.GetByID(code.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestDiscountUpdateKeepsUsedCount(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDiscountCodeRepository(db)

	code := newCode(nil)
	require.NoError(t, repo.Create(code))
	_, err := repo.RedeemOnce(code.ID, "sub_1", "")
	require.NoError(t, err)

	code.Description = "lente actie"
	code.UsedCount = 0
	require.NoError(t, repo.Update(code))

	stored, err := repo.GetByID(code.ID)
	require.NoError(t, err)
	assert.Equal(t, "lente actie", stored.Description)
	assert.Equal(t, 1, stored.UsedCount)

	require.NoError(t, repo.Delete(code.ID))
	_, err = repo.GetByID(code.ID)
	assert.True(t, IsNotFound(err))
}
