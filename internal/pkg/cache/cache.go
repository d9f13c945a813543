package cache

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FormFox/internal/pkg/config"
)

var client *redis.Client

// SetupCache initializes the connection to the Redis compatible cache server
// (Dragonfly in the compose setup). A failed ping is logged, not fatal: the
// client reconnects lazily.
func SetupCache(cfg config.CacheConfig) *redis.Client {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to %s: %v", cfg.Addr(), err)
	} else {
		log.Infof("[Cache] Connected to %s: %s", cfg.Addr(), pong)
	}
	return client
}

// GetClient returns the client created by SetupCache.
func GetClient() *redis.Client {
	return client
}

// Close shuts the client down.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
