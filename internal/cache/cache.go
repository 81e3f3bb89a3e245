// Package cache stores rendered response bodies for a short time.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a byte-slice cache with a fixed TTL. Misses and backend failures
// both report ok=false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	// Name identifies the backend in logs and response headers.
	Name() string
}

type entry struct {
	val []byte
	at  time.Time
}

// Memory is a process-local map with a timestamp per entry. Expired entries
// are dropped on Get and swept on Set.
type Memory struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, m: map[string]entry{}}
}

func (c *Memory) Name() string { return "memory" }

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) >= c.ttl {
		delete(c.m, key)
		return nil, false
	}
	return e.val, true
}

func (c *Memory) Set(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.m {
		if now.Sub(e.at) >= c.ttl {
			delete(c.m, k)
		}
	}
	c.m[key] = entry{val: append([]byte(nil), val...), at: now}
}

// Len reports the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
