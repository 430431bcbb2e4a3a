package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp() *fiber.App {
	app := fiber.New()
	SetupLoyaltyRoutes(app, LoyaltyDeps{})
	SetupEventRoutes(app, EventDeps{})
	return app
}

// The internal event surface is called service-to-service without forwarded
// user identity; the identity guard on the user routes must not catch it.
func TestEventRoutesReachableWithoutUserContext(t *testing.T) {
	app := setupTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/events/coupons/use", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	// The handler's own body validation answers, not the identity middleware
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestOrderEventReachableWithoutUserContext(t *testing.T) {
	app := setupTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/events/orders", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUserRoutesRequireGatewayIdentity(t *testing.T) {
	app := setupTestApp()

	for _, target := range []string{
		"/programs/2c6f4d3e-0000-0000-0000-000000000000/coupons",
		"/programs/2c6f4d3e-0000-0000-0000-000000000000/account",
	} {
		req := httptest.NewRequest(fiber.MethodGet, target, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, target)
	}
}
