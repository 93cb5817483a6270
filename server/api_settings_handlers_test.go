package server

import (
	"net/http"
	"testing"
)

func TestSettingsSingletonAndOnboarding(t *testing.T) {
	env := newTestEnv(t)

	first := env.asAdmin().GET("/api/v1/settings").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object()
	first.HasValue("onboardingComplete", false)
	id := first.Value("_id").String().Raw()

	// Repeated reads return the same singleton.
	env.asAdmin().GET("/api/v1/settings").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("_id", id)

	env.asAdmin().PUT("/api/v1/settings").
		WithJSON(map[string]any{"onboardingComplete": true}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("onboardingComplete", true)

	// Onboarding completion is one-way.
	env.asAdmin().PUT("/api/v1/settings").
		WithJSON(map[string]any{"onboardingComplete": false}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("onboardingComplete", true)
}

func TestAPIKeyRotationAndAutomationAuth(t *testing.T) {
	env := newTestEnv(t)

	key := env.asAdmin().POST("/api/v1/settings/api-key").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		Value("apiKey").String().NotEmpty().Raw()

	// Reads never reveal the key again.
	env.asAdmin().GET("/api/v1/settings").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("apiKey", "********")

	// The key authenticates as the automation principal with admin access.
	env.e.GET("/api/v1/nodes").
		WithHeader("Authorization", "Bearer "+key).
		Expect().Status(http.StatusOK).
		JSON().Object().HasValue("success", true)

	// Rotation invalidates nothing but the key itself: a fresh key works,
	// the old one stops.
	newKey := env.asAdmin().POST("/api/v1/settings/api-key").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		Value("apiKey").String().Raw()

	env.e.GET("/api/v1/nodes").
		WithHeader("Authorization", "Bearer "+key).
		Expect().Status(http.StatusUnauthorized)
	env.e.GET("/api/v1/nodes").
		WithHeader("Authorization", "Bearer "+newKey).
		Expect().Status(http.StatusOK)
}

func TestSettingsRequireWritePermission(t *testing.T) {
	env := newTestEnv(t)

	env.asUser().GET("/api/v1/settings").
		Expect().Status(http.StatusUnauthorized)
	env.asUser().POST("/api/v1/settings/api-key").
		Expect().Status(http.StatusUnauthorized)
}
