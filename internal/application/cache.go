package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/akaul/splitgate/internal/domain/model"
)

// fetchRetries bounds how often a failed upstream read is retried before
// the error surfaces.
const fetchRetries = 2

// Cache is an in-memory read cache for upstream responses, keyed by the
// requesting identity so one user's data is never served to another.
// Concurrent misses for the same key are collapsed into a single upstream
// fetch; failed reads are retried with exponential backoff. Errors are
// never cached.
type Cache struct {
	ttl        time.Duration
	serveStale bool
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// NewCache creates a Cache. When serveStale is set, an expired entry is
// served as a fallback if the refresh fetch fails.
func NewCache(ttl time.Duration, serveStale bool) *Cache {
	return &Cache{
		ttl:        ttl,
		serveStale: serveStale,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
}

// CacheKey builds the lookup key for an operation performed on behalf of
// one user. Params must be the complete set of values that influence the
// upstream response.
func CacheKey(userID int64, operation string, params ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s", userID, operation)
	for _, p := range params {
		fmt.Fprintf(&b, "|%v", p)
	}
	return b.String()
}

// GetOrFetch returns the cached value for key, or runs fetch to populate
// it. The fetch is retried on upstream unavailability; other errors are
// returned immediately.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	if value, ok := c.lookup(key, false); ok {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the entry while this one
		// waited on the flight group.
		if value, ok := c.lookup(key, false); ok {
			return value, nil
		}

		value, err := c.fetchWithRetry(ctx, key, fetch)
		if err != nil {
			if c.serveStale {
				if stale, ok := c.lookup(key, true); ok {
					slog.Warn("serving stale cache entry", "key", key, "error", err)
					return stale, nil
				}
			}
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
		c.mu.Unlock()

		return value, nil
	})
	return value, err
}

// Invalidate removes every entry for the user whose operation starts with
// operationPrefix. An empty prefix clears all of the user's entries.
func (c *Cache) Invalidate(userID int64, operationPrefix string) {
	prefix := fmt.Sprintf("%d|%s", userID, operationPrefix)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// staleRetentionFactor stretches the sweep cutoff when stale serving is on,
// so expired entries stay available as fallbacks across refresh failures
// instead of vanishing the moment they expire.
const staleRetentionFactor = 4

// Sweep periodically drops expired entries until the context is canceled.
// The cache stays correct without it; sweeping only bounds memory held by
// identities that stopped issuing requests.
func (c *Cache) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.sweepExpired(); removed > 0 {
				slog.Debug("cache swept", "removed", removed)
			}
		}
	}
}

// sweepExpired runs one reclamation pass and reports how many entries it
// removed.
func (c *Cache) sweepExpired() int {
	retention := c.ttl
	if c.serveStale {
		retention = staleRetentionFactor * c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-retention)
	var removed int
	for key, entry := range c.entries {
		if entry.fetchedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// lookup returns the entry for key. Unless stale is set, expired entries
// are treated as misses.
func (c *Cache) lookup(key string, stale bool) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !stale && c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.value, true
}

// fetchWithRetry runs fetch, retrying transient upstream failures with
// exponential backoff. Auth failures and other permanent errors surface
// immediately.
func (c *Cache) fetchWithRetry(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)

	return backoff.RetryWithData(func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			if errors.Is(err, model.ErrUpstreamUnavailable) {
				slog.Debug("upstream fetch retrying", "key", key, "error", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return value, nil
	}, policy)
}
