package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestMemoryTTL(t *testing.T) {
	c := NewMemory(60 * time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, ok := c.Get(ctx, "overview_csv:USLAX"); ok {
		t.Fatalf("empty cache should miss")
	}
	c.Set(ctx, "overview_csv:USLAX", []byte("a,b\n"))
	now = now.Add(59 * time.Second)
	got, ok := c.Get(ctx, "overview_csv:USLAX")
	if !ok || string(got) != "a,b\n" {
		t.Fatalf("want hit, got %q %v", got, ok)
	}
	now = now.Add(time.Second)
	if _, ok := c.Get(ctx, "overview_csv:USLAX"); ok {
		t.Fatalf("entry should expire at ttl")
	}
}

func TestMemorySweepOnSet(t *testing.T) {
	c := NewMemory(time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	now = now.Add(2 * time.Second)
	c.Set(ctx, "c", []byte("3"))
	if c.Len() != 1 {
		t.Fatalf("expired entries should be swept, len=%d", c.Len())
	}
}

func TestMemoryCopiesValue(t *testing.T) {
	c := NewMemory(time.Minute)
	buf := []byte("abc")
	c.Set(context.Background(), "k", buf)
	buf[0] = 'z'
	got, _ := c.Get(context.Background(), "k")
	if string(got) != "abc" {
		t.Fatalf("cache aliased caller buffer: %q", got)
	}
}

func TestRedisUnavailableDegradesToMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisWithClient(rdb, time.Minute, nil)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		c.Set(ctx, "k", []byte("v"))
		if _, ok := c.Get(ctx, "k"); ok {
			t.Fatalf("unreachable redis must miss")
		}
	}
	if c.State() != "open" {
		t.Fatalf("breaker should open after repeated failures, state=%s", c.State())
	}
}
