package redisx

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := New(addr)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestOrderView_RoundTrip(t *testing.T) {
	rdb := getRedisClient(t)
	ctx := context.Background()
	c := NewCache(rdb)
	id := time.Now().UnixNano()
	defer rdb.Del(ctx, fmt.Sprintf(KeyOrderView, id))

	_, ok, err := c.GetOrderView(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetOrderView(ctx, id, []byte(`{"order_id":1}`)))

	b, ok, err := c.GetOrderView(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"order_id":1}`, string(b))

	ttl := rdb.TTL(ctx, fmt.Sprintf(KeyOrderView, id)).Val()
	assert.True(t, ttl > 0 && ttl <= TTLOrderView)
}

func TestIdempotency_ReserveRememberRelease(t *testing.T) {
	rdb := getRedisClient(t)
	ctx := context.Background()
	c := NewCache(rdb)
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key))

	reserved, id, err := c.ReserveIdempotency(ctx, key)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Zero(t, id)

	// second caller sees the pending reservation
	reserved, id, err = c.ReserveIdempotency(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Zero(t, id)
	ttl := rdb.TTL(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Val()
	assert.True(t, ttl > 0 && ttl <= TTLIdempotencyPending)

	require.NoError(t, c.RememberIdempotency(ctx, key, 42))
	reserved, id, err = c.ReserveIdempotency(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, int64(42), id)

	require.NoError(t, c.ReleaseIdempotency(ctx, key))
	reserved, _, err = c.ReserveIdempotency(ctx, key)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestClaim_OnlyOnce(t *testing.T) {
	rdb := getRedisClient(t)
	ctx := context.Background()
	c := NewCache(rdb)
	key := fmt.Sprintf(KeyDedup, "test", fmt.Sprint(time.Now().UnixNano()))
	defer rdb.Del(ctx, key)

	first, err := c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	exists, err := Exists(ctx, rdb, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Release(ctx, key))
	again, err := c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}
