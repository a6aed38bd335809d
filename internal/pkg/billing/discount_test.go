package billing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lynqit/lynqit/app/models"
)

func TestCouponSpecFor(t *testing.T) {
	pct := &models.DiscountCode{Code: "WELKOM10", DiscountType: models.DiscountTypeFirstPayment, DiscountValue: decimal.NewFromInt(10), IsPercentage: true}
	spec := CouponSpecFor(pct)
	if !spec.PercentOff.Equal(decimal.NewFromInt(10)) || spec.AmountOff != 0 || spec.Duration != CouponDurationOnce {
		t.Fatalf("unexpected percentage coupon: %+v", spec)
	}
	if !strings.HasPrefix(spec.ID, "lynqit-welkom10-") {
		t.Fatalf("unexpected coupon id %q", spec.ID)
	}

	amount := &models.DiscountCode{Code: "VIJF", DiscountType: models.DiscountTypeRecurring, DiscountValue: decimal.RequireFromString("4.995"), IsPercentage: false}
	spec = CouponSpecFor(amount)
	if spec.AmountOff != 500 || spec.Currency != "eur" || spec.Duration != CouponDurationForever {
		t.Fatalf("unexpected amount coupon: %+v", spec)
	}

	changed := *pct
	changed.DiscountValue = decimal.NewFromInt(20)
	if CouponSpecFor(&changed).ID == CouponSpecFor(pct).ID {
		t.Fatalf("changed terms must produce a new coupon id")
	}
}

func TestDiscountMessage(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrInvalidDiscountCode, models.ErrDiscountExpired)
	if got := DiscountMessage(err); got != "Deze kortingscode is verlopen" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := DiscountMessage(errors.New("x")); got != "Ongeldige kortingscode" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
