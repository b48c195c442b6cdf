package doclink

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheExpiry is how long a cached resolver response stays valid
// when no expiry is configured.
const DefaultCacheExpiry = 30 * time.Minute

// LookupCache memoizes resolver responses keyed by the canonical request
// key. Get-or-set with expiry is the only compound primitive; factory
// invocations are serialized per key so at most one lookup runs per key at
// a time, while lookups for different keys proceed concurrently.
type LookupCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	expiry  time.Duration
	clock   func() time.Time
}

type cacheEntry struct {
	ready   chan struct{} // closed once the factory has finished
	result  *ApiProcessingResult
	dict    *RecordDictionary
	err     error
	expires time.Time
}

// NewLookupCache creates a cache with the given expiry. Zero or negative
// expiry falls back to DefaultCacheExpiry. A nil clock falls back to
// time.Now.
func NewLookupCache(expiry time.Duration, clock func() time.Time) *LookupCache {
	if expiry <= 0 {
		expiry = DefaultCacheExpiry
	}
	if clock == nil {
		clock = time.Now
	}
	return &LookupCache{
		entries: make(map[string]*cacheEntry),
		expiry:  expiry,
		clock:   clock,
	}
}

// LookupFactory produces a resolver response for a cache miss.
type LookupFactory func(ctx context.Context) (*ApiProcessingResult, *RecordDictionary, error)

// GetOrSet returns the cached response for key, or runs factory to produce
// one. Concurrent callers for the same key share a single factory
// invocation: the first caller runs it, the rest block until it finishes.
// A factory error is not cached; the next caller retries.
func (c *LookupCache) GetOrSet(ctx context.Context, key string, factory LookupFactory) (*ApiProcessingResult, *RecordDictionary, error) {
	for {
		c.mu.Lock()
		entry, ok := c.entries[key]
		if ok {
			select {
			case <-entry.ready:
				// Completed entry: check expiry and error state.
				if entry.err != nil || c.clock().After(entry.expires) {
					delete(c.entries, key)
					ok = false
				}
			default:
				// In flight: fall through and wait below.
			}
		}
		if ok {
			c.mu.Unlock()
			select {
			case <-entry.ready:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
			if entry.err != nil {
				// The flight we joined failed; retry with a fresh entry.
				continue
			}
			c.mu.Lock()
			expired := c.clock().After(entry.expires)
			c.mu.Unlock()
			if expired {
				continue
			}
			return entry.result, entry.dict, nil
		}

		entry = &cacheEntry{ready: make(chan struct{})}
		c.entries[key] = entry
		c.mu.Unlock()

		result, dict, err := factory(ctx)

		c.mu.Lock()
		entry.result = result
		entry.dict = dict
		entry.err = err
		entry.expires = c.clock().Add(c.expiry)
		if err != nil {
			delete(c.entries, key)
		}
		close(entry.ready)
		c.mu.Unlock()

		return result, dict, err
	}
}

// Invalidate removes a key from the cache. In-flight factories are left to
// finish; their result is simply not found by later callers.
func (c *LookupCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every cached entry.
func (c *LookupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Size returns the number of cached (or in-flight) keys.
func (c *LookupCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
