package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminApp(key string) *fiber.App {
	app := fiber.New()
	app.Get("/admin", AdminAPIKey(key), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"actor": AdminActor(c)})
	})
	return app
}

func TestAdminAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		headers    map[string]string
		wantStatus int
		wantActor  string
	}{
		{"not configured", "", map[string]string{"X-API-Key": "secret"}, fiber.StatusServiceUnavailable, ""},
		{"missing key", "secret", nil, fiber.StatusUnauthorized, ""},
		{"wrong key", "secret", map[string]string{"X-API-Key": "nope"}, fiber.StatusUnauthorized, ""},
		{"header key", "secret", map[string]string{"X-API-Key": "secret"}, fiber.StatusOK, "api-key"},
		{"bearer key", "secret", map[string]string{"Authorization": "Bearer secret"}, fiber.StatusOK, "api-key"},
		{"named actor", "secret", map[string]string{"X-API-Key": "secret", AdminActorHeader: "ops@example.com"}, fiber.StatusOK, "ops@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newAdminApp(tt.configured)
			req := httptest.NewRequest("GET", "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantActor, body["actor"])
			}
		})
	}
}
