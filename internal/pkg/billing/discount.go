package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lynqit/lynqit/app/models"
)

const (
	CouponDurationOnce    = "once"
	CouponDurationForever = "forever"
	couponCurrency        = "eur"
)

// CouponSpecFor translates a discount code into a provider coupon. The coupon
// id is derived from the discount terms, so editing a code yields a new coupon.
func CouponSpecFor(dc *models.DiscountCode) CouponSpec {
	spec := CouponSpec{
		Name:     dc.Code,
		Duration: CouponDurationOnce,
	}
	if dc.DiscountType == models.DiscountTypeRecurring {
		spec.Duration = CouponDurationForever
	}
	if dc.IsPercentage {
		spec.PercentOff = dc.DiscountValue.Round(2)
	} else {
		spec.AmountOff = dc.DiscountValue.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		spec.Currency = couponCurrency
	}

	terms := fmt.Sprintf("%s|%s|%t|%s", dc.DiscountType, dc.DiscountValue.String(), dc.IsPercentage, spec.Duration)
	sum := sha256.Sum256([]byte(terms))
	spec.ID = "lynqit-" + strings.ToLower(dc.Code) + "-" + hex.EncodeToString(sum[:4])
	return spec
}

// DiscountMessage is the Dutch explanation for a rejected discount code.
func DiscountMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrDiscountInactive):
		return "Deze kortingscode is niet actief"
	case errors.Is(err, models.ErrDiscountNotYetValid):
		return "Deze kortingscode is nog niet geldig"
	case errors.Is(err, models.ErrDiscountExpired):
		return "Deze kortingscode is verlopen"
	case errors.Is(err, models.ErrDiscountExhausted):
		return "Deze kortingscode is al het maximale aantal keren gebruikt"
	case errors.Is(err, models.ErrDiscountPlanNotAllowed):
		return "Deze kortingscode geldt niet voor dit abonnement"
	default:
		return "Ongeldige kortingscode"
	}
}
