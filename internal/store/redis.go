package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Cooldown allows one action per key per window.
type Cooldown struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
}

func NewCooldown(rdb *redis.Client, prefix string, window time.Duration) *Cooldown {
	return &Cooldown{rdb: rdb, prefix: prefix, window: window}
}

// Allow reports whether key is outside its window and, if so, starts a new one.
func (c *Cooldown) Allow(ctx context.Context, key string) (bool, error) {
	if c.window <= 0 {
		return true, nil
	}
	return c.rdb.SetNX(ctx, c.prefix+key, 1, c.window).Result()
}

// Reset clears the window for key.
func (c *Cooldown) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
