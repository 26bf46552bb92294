// Package redisstore wraps the Redis operations used by the dataset cache.
// Every key is stored under the client's namespace so several deployments can
// share one Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/observability"
)

const DefaultNamespace = "condomap:"

type settings struct {
	ro redis.Options
	ns string
}

type Option func(*settings)

func WithPoolSize(n int) Option {
	return func(s *settings) { s.ro.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.WriteTimeout = d }
}

// WithNamespace sets the key prefix. A missing trailing ':' is added.
func WithNamespace(ns string) Option {
	return func(s *settings) {
		ns = strings.TrimSpace(ns)
		if ns != "" && !strings.HasSuffix(ns, ":") {
			ns += ":"
		}
		s.ns = ns
	}
}

type Client struct {
	rdb *redis.Client
	ns  string
}

// New connects to addr and pings it once; an unreachable server is an error.
func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	s := settings{
		ns: DefaultNamespace,
		ro: redis.Options{
			Addr:         addr,
			PoolSize:     8,
			MinIdleConns: 1,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		},
	}
	for _, f := range opts {
		f(&s)
	}

	c := &Client{rdb: redis.NewClient(&s.ro), ns: s.ns}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// Key returns the namespaced form of k as stored in Redis.
func (c *Client) Key(k string) string { return c.ns + k }

func observe(op string, start time.Time, err error) {
	observability.ObserveCacheOp(op, err, time.Since(start).Seconds())
}

// Get returns the value at key; ok is false when the key is missing.
func (c *Client) Get(ctx context.Context, key string) (val []byte, ok bool, err error) {
	start := time.Now()
	b, err := c.rdb.Get(ctx, c.Key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observe("get", start, nil)
		observability.IncCacheMiss()
		return nil, false, nil
	case err != nil:
		observe("get", start, err)
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	observe("get", start, nil)
	observability.IncCacheHit()
	return b, true, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, c.Key(key), val, ttl).Err()
	observe("set", start, err)
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, or 0 when it is missing or persistent.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	start := time.Now()
	d, err := c.rdb.TTL(ctx, c.Key(key)).Result()
	observe("ttl", start, err)
	if err != nil {
		return 0, fmt.Errorf("redis TTL %q: %w", key, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Key(k)
	}
	start := time.Now()
	err := c.rdb.Del(ctx, full...).Err()
	observe("del", start, err)
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observe("ping", start, err)
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
