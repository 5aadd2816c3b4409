package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/veritas_shop/pkg/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisLocker(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	l := NewLocker(c)
	l.retries = 1

	key := WebhookLockKey(uuid.NewString())
	token, err := l.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = l.TryLock(ctx, key, time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Unlock(ctx, key, "someone-else"))
	_, err = l.TryLock(ctx, key, time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Unlock(ctx, key, token))
	_, err = l.TryLock(ctx, key, time.Second)
	assert.NoError(t, err)
}

func TestRedisRateLimiter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)

	key := LoginRateKey(uuid.NewString())
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	token, err := NoopLocker{}.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.NoError(t, NoopLocker{}.Unlock(ctx, "k", token))

	ok, err := NoopRateLimiter{}.Allow(ctx, "k", 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
