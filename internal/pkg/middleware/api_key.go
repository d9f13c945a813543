package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// KeyAdminActor is the Locals key holding the actor recorded in audit entries
// for admin requests.
const KeyAdminActor = "ADMIN_ACTOR"

// AdminActorHeader optionally names the operator behind an admin API call.
const AdminActorHeader = "X-Admin-Actor"

// AdminAPIKey authenticates admin requests against a single shared key sent as
// X-API-Key or as a bearer token. With no key configured every request is
// refused.
func AdminAPIKey(expected string) fiber.Handler {
	expected = strings.TrimSpace(expected)
	return func(c *fiber.Ctx) error {
		if expected == "" {
			log.Error("[Admin] ADMIN_API_KEY is not configured, refusing admin request")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_api_disabled"})
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			log.Warnf("[Admin] Invalid API key from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		actor := strings.TrimSpace(c.Get(AdminActorHeader))
		if actor == "" {
			actor = "api-key"
		}
		c.Locals(KeyAdminActor, actor)

		return c.Next()
	}
}

// AdminActor returns the actor stored by AdminAPIKey, or "" outside admin routes.
func AdminActor(c *fiber.Ctx) string {
	actor, _ := c.Locals(KeyAdminActor).(string)
	return actor
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
