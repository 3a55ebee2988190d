package redis

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/pkg/circuitbreaker"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// dropTimeout bounds the fallback delete when Redis is already misbehaving.
const dropTimeout = 250 * time.Millisecond

// JourneyCache is a read-through, write-through cache in front of a
// journey.Repository.
//
// Save overwrites the cached document with the state it just stored. A miss
// fills the cache only if the key is still absent, so a reader holding an
// older state can never replace what a writer put there. Writers that must
// not see a stale copy read from the wrapped repository directly.
//
// Redis failures degrade to the wrapped repository and are only logged;
// after repeated failures the breaker skips Redis entirely for a while.
type JourneyCache struct {
	next    journey.Repository
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewJourneyCache wraps next. A nil breaker gets circuitbreaker.CacheBreaker.
func NewJourneyCache(next journey.Repository, cache *Cache, ttl time.Duration, breaker *circuitbreaker.CircuitBreaker, log *logger.Logger) *JourneyCache {
	if ttl <= 0 {
		ttl = TTLJourneyCache
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("journey_cache"))
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(
			func(err error) bool { return errors.Is(err, ErrCacheMiss) },
			func(name string, from, to circuitbreaker.State) {
				log.Warn("cache breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		)
	}
	return &JourneyCache{next: next, cache: cache, ttl: ttl, breaker: breaker, log: log}
}

// Get serves from Redis when possible and fills the cache on a miss.
func (c *JourneyCache) Get(ctx context.Context, userID string) (*journey.State, error) {
	key := JourneyKey(userID)

	var cached journey.State
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, key, &cached)
	})
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) && !circuitbreaker.IsRejected(err) {
		c.log.Warn("journey cache read failed", logger.UserID(userID), logger.Err(err))
	}

	state, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := c.cache.Add(ctx, key, state, c.ttl)
		return err
	})
	if err != nil && !circuitbreaker.IsRejected(err) {
		c.log.Warn("journey cache fill failed", logger.UserID(userID), logger.Err(err))
	}
	return state, nil
}

// Save stores the state and then replaces the cached copy with it. When the
// cache cannot be updated the entry is dropped instead; if that fails too,
// readers may see the previous state until the TTL expires.
func (c *JourneyCache) Save(ctx context.Context, state *journey.State) error {
	if err := c.next.Save(ctx, state); err != nil {
		return err
	}

	key := JourneyKey(state.UserID)
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, key, state, c.ttl)
	})
	if err == nil {
		return nil
	}
	delCtx, cancel := context.WithTimeout(ctx, dropTimeout)
	defer cancel()
	if delErr := c.cache.Delete(delCtx, key); delErr != nil {
		c.log.Warn("journey cache update failed",
			logger.UserID(state.UserID),
			logger.Err(err),
			logger.String("delete_error", delErr.Error()),
		)
	}
	return nil
}
