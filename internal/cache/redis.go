package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const keyPrefix = "portpulse:csv:"

// Redis shares cached bodies between API instances. Calls go through a
// circuit breaker; while it is open every Get is a miss and Set is dropped.
type Redis struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     *slog.Logger
}

// NewRedis parses url (redis://...) and returns a cache over it.
func NewRedis(url string, ttl time.Duration, log *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisWithClient(redis.NewClient(opt), ttl, log), nil
}

func NewRedisWithClient(rdb redis.UniversalClient, ttl time.Duration, log *slog.Logger) *Redis {
	if log == nil {
		log = slog.Default()
	}
	c := &Redis{rdb: rdb, ttl: ttl, timeout: 250 * time.Millisecond, log: log}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a miss is a healthy answer
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func (c *Redis) Name() string { return "redis" }

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	val, err := c.cb.Execute(func() ([]byte, error) {
		return c.rdb.Get(ctx, keyPrefix+key).Bytes()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return val, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.cb.Execute(func() ([]byte, error) {
		return nil, c.rdb.Set(ctx, keyPrefix+key, val, c.ttl).Err()
	})
	if err != nil {
		c.log.Debug("cache set failed", "key", key, "err", err)
	}
}

// State exposes the breaker state for the admin debug endpoint.
func (c *Redis) State() string { return c.cb.State().String() }

func (c *Redis) Close() error { return c.rdb.Close() }
