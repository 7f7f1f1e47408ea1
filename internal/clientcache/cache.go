// Package clientcache provides a read-through cache cell for external API data.
// Each upstream source gets one Cache instance configured with its TTL and
// fetch function; values are held in memory and mirrored to the persistent
// clientdata repository so they survive restarts.
package clientcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/papaya09/Personal-Finance-Tracker/internal/clientdata"
)

// Clock returns the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Config configures a cache cell for one upstream source.
type Config[T any] struct {
	Table string        // clientdata table name (also used as the singleflight key prefix)
	Key   string        // row key within the table
	TTL   time.Duration // freshness window
	Fetch func(ctx context.Context) (T, error)
	Repo  *clientdata.Repository // optional - nil disables the persistent layer
	Clock Clock                  // optional - defaults to time.Now
	Log   zerolog.Logger
}

// Cache is a read-through cache cell for a single upstream source.
//
// Get serves the held value while it is fresh, refreshes it synchronously on
// expiry, and falls back to the last good value when a refresh fails (stale
// data is better than no data). Concurrent refreshes for the same source are
// collapsed into a single upstream call.
type Cache[T any] struct {
	table string
	key   string
	ttl   time.Duration
	fetch func(ctx context.Context) (T, error)
	repo  *clientdata.Repository
	now   Clock
	log   zerolog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	value     *T
	fetchedAt time.Time
}

type result[T any] struct {
	value  T
	cached bool
}

// New creates a cache cell for one upstream source.
func New[T any](cfg Config[T]) *Cache[T] {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		table: cfg.Table,
		key:   cfg.Key,
		ttl:   cfg.TTL,
		fetch: cfg.Fetch,
		repo:  cfg.Repo,
		now:   now,
		log:   cfg.Log.With().Str("cache", cfg.Table+":"+cfg.Key).Logger(),
	}
}

// Get returns the cached value and whether it was served from cache.
// A fetch is only triggered when no fresh value is held in memory or in the
// persistent layer. A failed fetch never clears previously held data.
func (c *Cache[T]) Get(ctx context.Context) (T, bool, error) {
	if v, ok := c.freshValue(); ok {
		return v, true, nil
	}

	res, err, _ := c.group.Do(c.key, func() (interface{}, error) {
		// Another caller in the same flight may have already refreshed.
		if v, ok := c.freshValue(); ok {
			return result[T]{value: v, cached: true}, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	r := res.(result[T])
	return r.value, r.cached, nil
}

// freshValue returns the in-memory value if it is still within its TTL.
func (c *Cache[T]) freshValue() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.value != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return *c.value, true
	}
	var zero T
	return zero, false
}

func (c *Cache[T]) refresh(ctx context.Context) (interface{}, error) {
	// Persistent layer may hold a fresh value from a previous process run
	if c.repo != nil {
		data, err := c.repo.GetIfFresh(c.table, c.key)
		if err == nil && data != nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				c.store(v)
				c.log.Debug().Msg("Cache hit (persistent)")
				return result[T]{value: v, cached: true}, nil
			}
		}
	}

	v, err := c.fetch(ctx)
	if err != nil {
		// Fetch failed - serve the last good value if there is one
		if stale, ok := c.staleValue(); ok {
			c.log.Warn().Err(err).Msg("Fetch failed, serving stale data")
			return result[T]{value: stale, cached: true}, nil
		}
		return nil, fmt.Errorf("fetch failed for %s: %w", c.table, err)
	}

	c.store(v)

	if c.repo != nil {
		if err := c.repo.Store(c.table, c.key, v, c.ttl); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist cache entry")
		}
	}

	return result[T]{value: v, cached: false}, nil
}

// staleValue returns the last held value regardless of freshness,
// checking memory first and the persistent layer second.
func (c *Cache[T]) staleValue() (T, bool) {
	c.mu.RLock()
	if c.value != nil {
		v := *c.value
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	var zero T
	if c.repo == nil {
		return zero, false
	}

	data, err := c.repo.Get(c.table, c.key)
	if err != nil || data == nil {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

func (c *Cache[T]) store(v T) {
	c.mu.Lock()
	c.value = &v
	c.fetchedAt = c.now()
	c.mu.Unlock()
}
