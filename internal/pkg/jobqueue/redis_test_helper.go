package jobqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

// newIsolatedRedisClient connects to the test Redis on a dedicated DB and
// skips the test when no server is reachable.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	hosts := []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost"}
	port := env.GetEnv("CACHE_PORT", "6379")
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", host, port),
			Password: password,
			DB:       db,
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := client.Ping(ctx).Result()
		cancel()
		if err != nil {
			lastErr = err
			_ = client.Close()
			continue
		}

		if err := client.FlushDB(context.Background()).Err(); err != nil {
			_ = client.Close()
			t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
		}
		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
		return client
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}
