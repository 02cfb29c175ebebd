package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(testSecret), func(c *fiber.Ctx) error {
		claims, err := GetCurrentClaims(c)
		if err != nil {
			return err
		}
		return c.SendString(claims.UserID)
	})
	app.Post("/admin", JWTMiddleware(testSecret), RequireScheduler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", RoleInstructor, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleInstructor, claims.Role)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateToken("user-1", RoleInstructor, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	app := protectedApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, _ := GenerateToken("user-1", RoleInstructor, testSecret, time.Hour)
	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireScheduler(t *testing.T) {
	app := protectedApp()
	cases := map[string]int{
		RoleAdmin:      fiber.StatusNoContent,
		RoleManager:    fiber.StatusNoContent,
		RoleInstructor: fiber.StatusForbidden,
	}
	for role, want := range cases {
		token, _ := GenerateToken("user-1", role, testSecret, time.Hour)
		req := httptest.NewRequest("POST", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, role)
	}
}
