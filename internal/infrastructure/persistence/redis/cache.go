// Package redis implements the Redis side of the learning journey engine:
// a JSON cache, a cross-process record lock and a write-through journey cache.
//
// Key components:
//   - Cache: JSON values under TTL, plus the raw SET NX used by locks
//   - RecordLocker: SET NX lock that serializes writes to one record
//   - JourneyCache: decorator around journey.Repository
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/learning-journey/pkg/logger"
	"github.com/alem-hub/learning-journey/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string // empty - no auth
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// DefaultConfig returns a local single-node setup.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// Addr returns "host:port".
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolTimeout:  c.PoolTimeout,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS, KEYS, TTLs
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the key does not exist.
	ErrCacheMiss = errors.New("cache: key not found")

	ErrCacheConnection    = errors.New("cache: connection failed")
	ErrCacheSerialization = errors.New("cache: serialization failed")
	ErrCacheInvalidTTL    = errors.New("cache: invalid TTL")
	ErrCacheKeyEmpty      = errors.New("cache: key cannot be empty")
	ErrCacheNilValue      = errors.New("cache: value cannot be nil")
)

const (
	PrefixJourney = "journey:"
	PrefixLock    = "lock:"
)

const (
	// TTLJourneyCache bounds how long a reader can see a journey that a failed
	// cache update left behind.
	TTLJourneyCache = 10 * time.Minute

	// TTLDistributedLock bounds how long a crashed holder can block a record.
	TTLDistributedLock = 30 * time.Second
)

// JourneyKey is the cache key of a user's journey.
func JourneyKey(userID string) string {
	return PrefixJourney + userID
}

// LockKey is the Redis key of a lock on resource.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores JSON-encoded values.
type Cache struct {
	client redis.UniversalClient
}

// NewCache connects to Redis, retrying the first ping while the server boots.
func NewCache(ctx context.Context, cfg Config, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(cfg.options())

	onRetry := func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := retry.StartupRetrier(onRetry).Do(ctx, ping); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return &Cache{client: client}, nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping is used by the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func encode(key string, value interface{}, ttl time.Duration) ([]byte, error) {
	switch {
	case key == "":
		return nil, ErrCacheKeyEmpty
	case value == nil:
		return nil, ErrCacheNilValue
	case ttl < 0:
		return nil, ErrCacheInvalidTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return data, nil
}

// Set stores value under key, replacing what was there.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(key, value, ttl)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Add stores value only if key is absent and reports whether it did.
func (c *Cache) Add(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := encode(key, value, ttl)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, data, ttl).Result()
}

// Get decodes the value under key into dest. Returns ErrCacheMiss if absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// SetNX sets a raw string only if the key does not exist. A lock must expire,
// so ttl has to be positive.
func (c *Cache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		return false, ErrCacheInvalidTTL
	}
	return c.client.SetNX(ctx, key, value, ttl).Result()
}
