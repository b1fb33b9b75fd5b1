package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds order views, idempotency keys and event dedup claims.
type Cache struct {
	RDB *redis.Client
}

func NewCache(rdb *redis.Client) *Cache { return &Cache{RDB: rdb} }

func (c *Cache) GetOrderView(ctx context.Context, orderID int64) ([]byte, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderView, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Cache) SetOrderView(ctx context.Context, orderID int64, view []byte) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderView, orderID), view, TTLOrderView).Err()
}

// ReserveIdempotency takes key for a new create. When the key is already held
// it reports the stored order id, or 0 while the holder is still creating.
func (c *Cache) ReserveIdempotency(ctx context.Context, key string) (bool, int64, error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, key)
	ok, err := c.RDB.SetNX(ctx, k, idemPending, TTLIdempotencyPending).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}
	s, err := c.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || s == idemPending {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("idempotency key %q: %w", key, err)
	}
	return false, id, nil
}

// RememberIdempotency replaces the pending marker with the created order id.
func (c *Cache) RememberIdempotency(ctx context.Context, key string, orderID int64) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// ReleaseIdempotency drops a reservation whose create failed.
func (c *Cache) ReleaseIdempotency(ctx context.Context, key string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Err()
}

// Claim sets key only if absent. false means someone already claimed it.
func (c *Cache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.RDB.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops a claim so the work can be retried.
func (c *Cache) Release(ctx context.Context, key string) error {
	return c.RDB.Del(ctx, key).Err()
}
