package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akaul/splitgate/internal/domain/model"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func countingFetch(calls *atomic.Int32, value any, err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, err
	}
}

func TestCache_ServesFromCacheWithinTTL(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	key := CacheKey(42, "get_friends")
	for range 3 {
		value, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, "friends", nil))
		require.NoError(t, err)
		assert.Equal(t, "friends", value)
	}

	assert.Equal(t, int32(1), calls.Load(), "repeat reads within TTL must not refetch")
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	cache := NewCache(5*time.Minute, false)
	cache.now = clock.Now

	ctx := context.Background()
	var calls atomic.Int32
	key := CacheKey(42, "get_friends")

	_, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, "v1", nil))
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	value, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, "v2", nil))
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_KeysAreIdentityScoped(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, CacheKey(1, "get_friends"), func(context.Context) (any, error) {
		return "user-1 friends", nil
	})
	require.NoError(t, err)

	value, err := cache.GetOrFetch(ctx, CacheKey(2, "get_friends"), func(context.Context) (any, error) {
		return "user-2 friends", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-2 friends", value, "identities must never share entries")
}

func TestCache_InvalidateIsScopedToUserAndPrefix(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	keys := []string{
		CacheKey(1, "get_expenses", 7),
		CacheKey(1, "get_friends"),
		CacheKey(2, "get_expenses", 7),
	}
	for _, key := range keys {
		_, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, key, nil))
		require.NoError(t, err)
	}

	cache.Invalidate(1, "get_expenses")

	for _, key := range keys {
		_, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, key, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), calls.Load(), "only user 1's expense entry should have been dropped")
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	key := CacheKey(42, "get_groups")
	fail := errors.New("boom")

	_, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, nil, fail))
	require.Error(t, err)

	value, err := cache.GetOrFetch(ctx, key, countingFetch(&calls, "groups", nil))
	require.NoError(t, err)
	assert.Equal(t, "groups", value, "a failed fetch must not poison the key")
}

func TestCache_RetriesUpstreamUnavailable(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	value, err := cache.GetOrFetch(ctx, CacheKey(42, "get_friends"), func(context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, fmt.Errorf("fetch: %w", model.ErrUpstreamUnavailable)
		}
		return "friends", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "friends", value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCache_AuthFailureIsNotRetried(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	_, err := cache.GetOrFetch(ctx, CacheKey(42, "get_friends"),
		countingFetch(&calls, nil, fmt.Errorf("fetch: %w", model.ErrUnauthorized)))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load(), "auth failures are permanent")
}

func TestCache_ServeStaleFallback(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	cache := NewCache(5*time.Minute, true)
	cache.now = clock.Now

	ctx := context.Background()
	key := CacheKey(42, "get_friends")

	_, err := cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return "stale friends", nil
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	value, err := cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return nil, fmt.Errorf("fetch: %w", model.ErrUnauthorized)
	})
	require.NoError(t, err)
	assert.Equal(t, "stale friends", value)
}

func TestCache_SweepRetainsStaleFallbackEntries(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	cache := NewCache(5*time.Minute, true)
	cache.now = clock.Now

	ctx := context.Background()
	key := CacheKey(42, "get_friends")

	_, err := cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return "stale friends", nil
	})
	require.NoError(t, err)

	// Expired but inside the retention horizon: the sweep must leave the
	// entry for the stale fallback to serve.
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 0, cache.sweepExpired())

	value, err := cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return nil, fmt.Errorf("fetch: %w", model.ErrUnauthorized)
	})
	require.NoError(t, err)
	assert.Equal(t, "stale friends", value)

	// Beyond the horizon the entry is reclaimed.
	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, cache.sweepExpired())
}

func TestCache_SweepDropsExpiredEntriesWhenStaleDisabled(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	cache := NewCache(5*time.Minute, false)
	cache.now = clock.Now

	ctx := context.Background()
	_, err := cache.GetOrFetch(ctx, CacheKey(42, "get_friends"), func(context.Context) (any, error) {
		return "friends", nil
	})
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, cache.sweepExpired())
}

func TestCache_StaleDisabledSurfacesError(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	cache := NewCache(5*time.Minute, false)
	cache.now = clock.Now

	ctx := context.Background()
	key := CacheKey(42, "get_friends")

	_, err := cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return "stale friends", nil
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	_, err = cache.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return nil, fmt.Errorf("fetch: %w", model.ErrUnauthorized)
	})
	assert.Error(t, err)
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	cache := NewCache(5*time.Minute, false)
	ctx := context.Background()
	var calls atomic.Int32

	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "friends", nil
	}

	const goroutines = 8
	var wg sync.WaitGroup
	results := make([]any, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := cache.GetOrFetch(ctx, CacheKey(42, "get_friends"), fetch)
			assert.NoError(t, err)
			results[i] = value
		}()
	}

	// Give the goroutines time to pile onto the same flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent misses must share one fetch")
	for _, r := range results {
		assert.Equal(t, "friends", r)
	}
}
