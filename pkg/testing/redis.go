package testing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClientAndCtx connects to the redis at FORMCOACH_TEST_REDIS_ADDR
// (host:port). The test is skipped when the variable is not set.
// Every key the test creates should use keyPrefix; they are deleted on cleanup.
func GetRedisClientAndCtx(t *testing.T, keyPrefix string) (context.Context, *redis.Client) {
	t.Helper()

	redisAddr := os.Getenv("FORMCOACH_TEST_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("FORMCOACH_TEST_REDIS_ADDR not set, skipping redis test")
	}
	t.Logf("using redis: [%s]", redisAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("FORMCOACH_TEST_REDIS_PASS"),
		DB:       0, // use default DB
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		keys, err := rdb.Keys(cleanupCtx, keyPrefix+"*").Result()
		if err == nil && len(keys) > 0 {
			rdb.Del(cleanupCtx, keys...)
		}
		require.NoError(t, rdb.Close())
	})

	return ctx, rdb
}
