package billing

import (
	"strings"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/internal/pkg/entitlements"
)

func normalizePlan(plan string) string {
	return string(entitlements.ParsePlan(plan))
}

func planRank(plan string) int {
	return entitlements.Rank(entitlements.ParsePlan(plan))
}

// isPaidPlan reports whether plan can be bought.
func isPaidPlan(plan string) bool {
	return planRank(plan) > 0
}

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case models.BillingIntervalMonth, models.BillingIntervalYear:
		return i
	case "":
		return models.BillingIntervalMonth
	default:
		return models.BillingIntervalUnknown
	}
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue:
		return true
	default:
		return false
	}
}

// PriceTable resolves plan and interval to a provider price id. It is the
// fallback when no plan mapping row exists.
type PriceTable map[string]string

func priceKey(plan, interval string) string {
	return normalizePlan(plan) + ":" + normalizeInterval(interval)
}

// Lookup returns the price for plan and interval.
func (t PriceTable) Lookup(plan, interval string) (string, bool) {
	p, ok := t[priceKey(plan, interval)]
	return p, ok && p != ""
}

// PlanFor returns the plan and interval a price id belongs to.
func (t PriceTable) PlanFor(priceID string) (plan, interval string, ok bool) {
	for k, v := range t {
		if v == priceID {
			parts := strings.SplitN(k, ":", 2)
			return parts[0], parts[1], true
		}
	}
	return "", "", false
}
