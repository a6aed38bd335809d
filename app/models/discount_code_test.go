package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestDiscount(now time.Time) *DiscountCode {
	until := now.Add(24 * time.Hour)
	maxUses := 10
	return &DiscountCode{
		Code:            "WELKOM10",
		DiscountType:    DiscountTypeFirstPayment,
		DiscountValue:   decimal.NewFromInt(10),
		IsPercentage:    true,
		ValidFrom:       now.Add(-24 * time.Hour),
		ValidUntil:      &until,
		MaxUses:         &maxUses,
		UsedCount:       3,
		Active:          true,
		ApplicablePlans: datatypes.JSONSlice[string]{"start", "pro"},
	}
}

func TestDiscountCodeCheckRedeemable(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(d *DiscountCode)
		plan   string
		want   error
	}{
		{name: "valid", plan: "pro"},
		{name: "plan case insensitive", plan: " START "},
		{name: "inactive", plan: "pro", mutate: func(d *DiscountCode) { d.Active = false }, want: ErrDiscountInactive},
		{name: "not yet valid", plan: "pro", mutate: func(d *DiscountCode) { d.ValidFrom = now.Add(time.Minute) }, want: ErrDiscountNotYetValid},
		{name: "expired", plan: "pro", mutate: func(d *DiscountCode) {
			past := now.Add(-time.Minute)
			d.ValidUntil = &past
		}, want: ErrDiscountExpired},
		{name: "used count equals max uses", plan: "pro", mutate: func(d *DiscountCode) { d.UsedCount = *d.MaxUses }, want: ErrDiscountExhausted},
		{name: "unlimited uses", plan: "pro", mutate: func(d *DiscountCode) {
			d.MaxUses = nil
			d.UsedCount = 5000
		}},
		{name: "plan not applicable", plan: "free", want: ErrDiscountPlanNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDiscount(now)
			if tt.mutate != nil {
				tt.mutate(d)
			}
			err := d.CheckRedeemable(tt.plan, now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDiscountCodeValidate(t *testing.T) {
	now := time.Now()

	d := newTestDiscount(now)
	require.NoError(t, d.Validate())

	d.DiscountValue = decimal.NewFromInt(150)
	assert.Error(t, d.Validate())

	d = newTestDiscount(now)
	d.DiscountValue = decimal.Zero
	assert.Error(t, d.Validate())

	d = newTestDiscount(now)
	d.DiscountType = "lifetime"
	assert.Error(t, d.Validate())
}

func TestNormalizeDiscountCode(t *testing.T) {
	assert.Equal(t, "ZOMER25", NormalizeDiscountCode("  zomer25 "))
}
