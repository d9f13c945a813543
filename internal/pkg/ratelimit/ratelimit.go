// Package ratelimit throttles inbound webhook traffic per client IP. Counters
// live in Redis so every instance shares the same window.
package ratelimit

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/FormFox/internal/pkg/config"
)

// storageDatabase keeps limiter keys apart from the job queue in DB 0.
const storageDatabase = 1

// NewStorage returns a Redis backed fiber.Storage for limiter counters.
func NewStorage(cfg config.CacheConfig) fiber.Storage {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: storageDatabase,
		Reset:    false,
	})
}

// New allows perMinute requests per client IP and minute. perMinute <= 0
// disables limiting. A nil storage keeps counters in process memory.
func New(perMinute int, storage fiber.Storage) fiber.Handler {
	if perMinute <= 0 {
		log.Info("[RateLimit] Webhook rate limiting disabled")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "formfox:webhook:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Warnf("[RateLimit] Limit of %d/min reached for %s", perMinute, c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	})
}
