package controllers

import (
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynqit/lynqit/app/repository"
)

func TestCreatePageStartsFree(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/pages", "user-1", map[string]interface{}{
		"slug":  "  Bakkerij-Jansen ",
		"intro": "Vers brood",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bakkerij-jansen", body["slug"])
	assert.Equal(t, "free", body["subscriptionPlan"])
	assert.Equal(t, "Vers brood", body["intro"])
	assert.Equal(t, `"1"`, resp.Header.Get(fiber.HeaderETag))

	features := body["features"].(map[string]interface{})
	assert.Equal(t, "free", features["plan"])
	assert.Equal(t, float64(5), features["maxCustomLinks"])
}

func TestCreatePageDuplicateSlugSuggestsAlternatives(t *testing.T) {
	env := newTestEnv(t)
	env.seedPage(t, "user-2", "bakkerij", "free")
	env.seedPage(t, "user-2", "bakkerij-2", "free")

	resp, body := env.do(t, "POST", "/api/pages", "user-1", map[string]interface{}{"slug": "bakkerij"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "slug_taken", body["error"])
	suggestions := body["suggestions"].([]interface{})
	require.Len(t, suggestions, slugSuggestions)
	assert.Equal(t, "bakkerij-3", suggestions[0])

	pages, err := env.repos.Page.GetByUserID("user-1")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestCreatePageRejectsReservedSlug(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/pages", "user-1", map[string]interface{}{"slug": "admin"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["error"])
}

func TestCreatePageRejectsPaidFeatureOnFree(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/pages", "user-1", map[string]interface{}{
		"slug":           "kapper-kees",
		"telefoonnummer": "+31612345678",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "feature_not_available", body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestGetPageOnlyForOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "van-mij", "free")

	resp, _ := env.do(t, "GET", "/api/pages/"+page.ID, "user-2", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, "GET", "/api/pages/"+page.ID, "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "van-mij", body["slug"])

	resp, _ = env.do(t, "GET", "/api/pages/"+page.ID, "beheer", nil, "X-Test-Role", "admin")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = env.do(t, "GET", "/api/pages/bestaat-niet", "user-1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestUpdatePageVersionCheck(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "versies", "free")

	resp, body := env.do(t, "PUT", "/api/pages/"+page.ID, "user-1",
		map[string]interface{}{"intro": "eerste"}, fiber.HeaderIfMatch, `"1"`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["version"])
	assert.Equal(t, `"2"`, resp.Header.Get(fiber.HeaderETag))

	// a second writer still holding version 1 loses
	resp, body = env.do(t, "PUT", "/api/pages/"+page.ID, "user-1",
		map[string]interface{}{"intro": "tweede", "version": 1})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "version_conflict", body["error"])

	// without a version the edit is last-write-wins
	resp, body = env.do(t, "PUT", "/api/pages/"+page.ID, "user-1", map[string]interface{}{"intro": "derde"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "derde", body["intro"])

	stored, err := env.repos.Page.GetByID(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "derde", stored.Intro)
	assert.Equal(t, 3, stored.Version)
}

func TestUpdatePageFreeLinkCap(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "veel-links", "free")

	links := make([]map[string]interface{}, 0, 6)
	for i := 0; i < 6; i++ {
		links = append(links, map[string]interface{}{
			"text": "link " + strconv.Itoa(i), "url": "https://lynqit.nl/" + strconv.Itoa(i), "enabled": true,
		})
	}
	resp, body := env.do(t, "PUT", "/api/pages/"+page.ID, "user-1", map[string]interface{}{"customLinks": links})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "feature_not_available", body["error"])

	resp, _ = env.do(t, "PUT", "/api/pages/"+page.ID, "user-1", map[string]interface{}{"customLinks": links[:5]})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdatePageStartPlanAllowsContactInfo(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "start-pagina", "start")

	resp, body := env.do(t, "PUT", "/api/pages/"+page.ID, "user-1", map[string]interface{}{
		"telefoonnummer": "+31612345678",
		"emailadres":     "info@lynqit.nl",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "+31612345678", body["telefoonnummer"])
}

func TestDeletePageCancelsSubscription(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "weg-ermee", "pro")

	resp, _ := env.do(t, "DELETE", "/api/pages/"+page.ID, "user-2", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, env.billing.deletionCalls)

	resp, _ = env.do(t, "DELETE", "/api/pages/"+page.ID, "user-1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.billing.deletionCalls)

	exists, err := env.repos.Page.SlugExists("weg-ermee")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListPagesClampsToPlan(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "terug-naar-gratis", "start")
	page.Telefoonnummer = "+31612345678"
	require.NoError(t, env.repos.Page.Update(page, page.Version))
	require.NoError(t, env.repos.Page.UpdateBilling(page.ID, repository.BillingState{Plan: "free", Status: "active"}))

	resp, body := env.do(t, "GET", "/api/pages", "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	pages := body["pages"].([]interface{})
	require.Len(t, pages, 1)
	assert.Equal(t, "", pages[0].(map[string]interface{})["telefoonnummer"])

	stored, err := env.repos.Page.GetByID(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "+31612345678", stored.Telefoonnummer)
}

func TestCheckSlug(t *testing.T) {
	env := newTestEnv(t)
	env.seedPage(t, "user-2", "bezet", "free")

	_, body := env.do(t, "GET", "/api/pages/check-slug?slug=Vrij-Nog", "user-1", nil)
	assert.Equal(t, "vrij-nog", body["slug"])
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, true, body["available"])

	_, body = env.do(t, "GET", "/api/pages/check-slug?slug=bezet", "user-1", nil)
	assert.Equal(t, false, body["available"])
	assert.NotEmpty(t, body["suggestions"])

	_, body = env.do(t, "GET", "/api/pages/check-slug?slug=a_b", "user-1", nil)
	assert.Equal(t, false, body["valid"])
}

func TestPageAnalyticsSummary(t *testing.T) {
	env := newTestEnv(t)
	page := env.seedPage(t, "user-1", "cijfers", "free")

	resp, body := env.do(t, "GET", "/api/pages/"+page.ID+"/analytics?days=7", "user-1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, page.ID, body["pageId"])
	assert.Equal(t, float64(3), body["totalViews"])
}
