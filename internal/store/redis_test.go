package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), mr.Addr(), "")
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestNewRedisClientPingFails(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisClient(context.Background(), addr, ""); err == nil {
		t.Fatal("expected ping error for a closed server")
	}
}

func TestCooldownWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	c := NewCooldown(rdb, "test:cooldown:", time.Minute)

	ok, err := c.Allow(ctx, "a@example.com")
	if err != nil || !ok {
		t.Fatalf("first Allow = %v, %v; want true, nil", ok, err)
	}
	if ok, _ := c.Allow(ctx, "a@example.com"); ok {
		t.Fatal("second Allow inside the window should be refused")
	}
	if ok, _ := c.Allow(ctx, "b@example.com"); !ok {
		t.Fatal("other keys have their own window")
	}
	if !mr.Exists("test:cooldown:a@example.com") {
		t.Fatal("cooldown key not stored under the prefix")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := c.Allow(ctx, "a@example.com"); !ok {
		t.Fatal("Allow after the window should pass")
	}
}

func TestCooldownReset(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	c := NewCooldown(rdb, "test:cooldown:", time.Hour)

	c.Allow(ctx, "a@example.com")
	if err := c.Reset(ctx, "a@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ok, _ := c.Allow(ctx, "a@example.com"); !ok {
		t.Fatal("Allow after Reset should pass")
	}
}

func TestCooldownDisabled(t *testing.T) {
	_, rdb := newTestRedis(t)
	c := NewCooldown(rdb, "test:cooldown:", 0)
	for i := 0; i < 3; i++ {
		if ok, err := c.Allow(context.Background(), "a@example.com"); err != nil || !ok {
			t.Fatalf("Allow #%d = %v, %v; want true, nil", i, ok, err)
		}
	}
}
