// Package redis implements the read-through cache in front of the school database.
// Only lookups that are repeated across documents (class membership per date)
// are cached; aggregation state never leaves the process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classbook/register-archive/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config locates the Redis server used for the membership cache.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a local Redis on the standard port.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns "host:port".
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		// the breaker in MembershipCache decides when to give up
		MaxRetries: -1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYS & ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// PrefixMembership namespaces class membership lookups.
const PrefixMembership = "membership:"

// TTLMembership is the default lifetime of a cached membership list.
const TTLMembership = 6 * time.Hour

// MembershipKey returns "membership:{classID}:{yyyy-mm-dd}".
func MembershipKey(classID int64, day string) string {
	return PrefixMembership + strconv.FormatInt(classID, 10) + ":" + day
}

var (
	// ErrCacheMiss means the key is absent; it is not a failure of Redis.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable wraps a failed connection attempt.
	ErrCacheUnavailable = errors.New("cache: redis unavailable")

	errEmptyKey = errors.New("cache: empty key")
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores JSON values in Redis.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis. A server that is still starting gets a few
// quick attempts; after that the archiver carries on without the cache.
func NewCache(ctx context.Context, cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(cfg.options())

	policy := retry.DefaultPolicy().WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Warn("redis not reachable, retrying", "addr", cfg.Addr(), "attempt", attempt, "delay", delay.String(), "error", err)
	})
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w at %s: %v", ErrCacheUnavailable, cfg.Addr(), err)
	}
	return &Cache{client: client}, nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the value under key into dest, or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return errEmptyKey
	}
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// a value that no longer decodes is as good as absent
		_ = c.client.Unlink(ctx, key).Err()
		return ErrCacheMiss
	}
	return nil
}

// DeleteByPattern unlinks every key matching pattern, in batches of scanBatch
// keys, and returns how many were removed.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		return 0, errEmptyKey
	}

	var (
		removed int
		batch   = make([]string, 0, scanBatch)
	)
	unlink := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Unlink(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}

	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		if batch = append(batch, iter.Val()); len(batch) == scanBatch {
			if err := unlink(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, unlink()
}

const scanBatch = 100
