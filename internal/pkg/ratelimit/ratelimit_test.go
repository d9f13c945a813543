package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("POST", "/hook", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestNew_LimitsPerMinute(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", New(2, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
}

func TestNew_Disabled(t *testing.T) {
	app := fiber.New()
	app.Post("/hook", New(0, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, fiber.StatusOK, hit(t, app))
	}
}
