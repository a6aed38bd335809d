package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminHeaders() []string {
	return []string{"X-Test-Role", "admin"}
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/admin/stats", "beheer", nil, adminHeaders()...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, stats["totalUsers"])
	assert.Len(t, body["signupsWeek"], 7)
}

func TestAdminQueueWithoutQueue(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/api/admin/queue", "beheer", nil, adminHeaders()...)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "queue_unavailable", body["error"])
}

func TestAdminDiscountCodeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/admin/discount-codes", "beheer", map[string]interface{}{
		"code":          " zomer25 ",
		"discountType":  "first_payment",
		"discountValue": "25",
		"isPercentage":  true,
		"maxUses":       10,
	}, adminHeaders()...)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ZOMER25", body["code"])
	id := body["id"].(string)

	resp, _ = env.do(t, "POST", "/api/admin/discount-codes", "beheer", map[string]interface{}{
		"code": "ZOMER25", "discountType": "first_payment", "discountValue": "10",
	}, adminHeaders()...)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "POST", "/api/admin/discount-codes", "beheer", map[string]interface{}{
		"code": "TEVEEL", "discountType": "first_payment", "discountValue": "150", "isPercentage": true,
	}, adminHeaders()...)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	require.NoError(t, env.repos.DiscountCode.SetStripeCouponID(id, "coupon_old"))
	resp, body = env.do(t, "PUT", "/api/admin/discount-codes/"+id, "beheer", map[string]interface{}{
		"discountValue": "30",
	}, adminHeaders()...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ZOMER25", body["code"])

	stored, err := env.repos.DiscountCode.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "30", stored.DiscountValue.String())
	assert.Empty(t, stored.StripeCouponID)

	resp, body = env.do(t, "GET", "/api/admin/discount-codes", "beheer", nil, adminHeaders()...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["discountCodes"], 1)
}

func TestAdminPlanMappingValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/admin/plan-mappings", "beheer", map[string]interface{}{
		"provider_plan_ref": "price_pro_year",
		"internal_plan":     "pro",
		"billing_interval":  "year",
	}, adminHeaders()...)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "price_pro_year", body["provider_plan_ref"])
	require.Len(t, env.billing.mappings, 1)
	assert.True(t, env.billing.mappings[0].IsActive)
}
