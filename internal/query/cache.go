// Package query implements the console's resource cache and mutation
// runner. Every list the console renders is read through a keyed cache
// entry; every create/update/delete goes through a Mutation that
// invalidates the affected keys on success so subscribed views refetch.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TopicInvalidated is published on the cache bus with the invalidated key.
const TopicInvalidated = "query:invalidated"

// FetchFunc loads the current server state for one cache key.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Options tunes one resource handle.
type Options struct {
	// Disabled suspends fetching until SetDisabled(false). Used to defer
	// the cost of tabs that are not selected yet.
	Disabled bool
}

// Cache is a keyed in-memory cache of server resources. Concurrent reads
// of the same key share one in-flight request, and a failed refetch keeps
// the last known data (stale-while-error) so views never blank out.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	flight  singleflight.Group
	bus     EventBus.Bus

	refetchTimeout time.Duration
}

type entry struct {
	data      interface{}
	err       error
	hasData   bool
	stale     bool
	fetchedAt time.Time
	handles   map[*Handle]struct{}
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:        make(map[string]*entry),
		bus:            EventBus.New(),
		refetchTimeout: 30 * time.Second,
	}
}

// Bus exposes the cache event bus so other components (notifications,
// dashboard refresh) can observe invalidations.
func (c *Cache) Bus() EventBus.Bus {
	return c.bus
}

// Handle is one subscriber of a cache key. A handle is "mounted" while
// its owning view is visible; invalidation only refetches mounted handles.
type Handle struct {
	cache    *Cache
	key      string
	fetch    FetchFunc
	disabled bool
	mounted  bool
}

// Resource registers a handle for key with its fetch function. The handle
// starts mounted.
func (c *Cache) Resource(key string, fetch FetchFunc, opts ...Options) *Handle {
	h := &Handle{cache: c, key: key, fetch: fetch, mounted: true}
	for _, o := range opts {
		h.disabled = o.Disabled
	}
	c.mu.Lock()
	e := c.entry(key)
	e.handles[h] = struct{}{}
	c.mu.Unlock()
	return h
}

// entry returns the entry for key, creating it if needed. Caller holds mu.
func (c *Cache) entry(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{handles: make(map[*Handle]struct{})}
		c.entries[key] = e
	}
	return e
}

// Key returns the handle's cache key.
func (h *Handle) Key() string { return h.key }

// SetDisabled flips the fetch suspension. Enabling does not fetch by
// itself; the next Get does.
func (h *Handle) SetDisabled(disabled bool) {
	h.cache.mu.Lock()
	h.disabled = disabled
	h.cache.mu.Unlock()
}

// Release unmounts the handle; invalidations no longer trigger background
// refetches for it. Cached data stays for the next mount.
func (h *Handle) Release() {
	h.cache.mu.Lock()
	h.mounted = false
	if e, ok := h.cache.entries[h.key]; ok {
		delete(e.handles, h)
	}
	h.cache.mu.Unlock()
}

// Peek returns the last known data without fetching.
func (h *Handle) Peek() (interface{}, bool) {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	e, ok := h.cache.entries[h.key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Err returns the last fetch error for the key, if any.
func (h *Handle) Err() error {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	if e, ok := h.cache.entries[h.key]; ok {
		return e.err
	}
	return nil
}

// Get returns current data for the key, fetching when there is none or it
// is stale. On fetch failure the last known data is returned alongside the
// error. A disabled handle returns cached data without fetching.
func (h *Handle) Get(ctx context.Context) (interface{}, error) {
	h.cache.mu.Lock()
	e := h.cache.entry(h.key)
	if h.disabled || (e.hasData && !e.stale) {
		data, err := e.data, e.err
		h.cache.mu.Unlock()
		return data, err
	}
	h.cache.mu.Unlock()

	return h.cache.fetchKey(ctx, h.key, h.fetch)
}

// Refetch forces a fetch regardless of staleness.
func (h *Handle) Refetch(ctx context.Context) (interface{}, error) {
	h.cache.mu.Lock()
	if e, ok := h.cache.entries[h.key]; ok {
		e.stale = true
	}
	h.cache.mu.Unlock()
	return h.cache.fetchKey(ctx, h.key, h.fetch)
}

// fetchKey runs fetch through singleflight so concurrent same-key reads
// share one network call, then folds the result into the entry.
func (c *Cache) fetchKey(ctx context.Context, key string, fetch FetchFunc) (interface{}, error) {
	data, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return fetch(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	if err != nil {
		// Keep last known data so the view can keep rendering it.
		e.err = err
		if e.hasData {
			return e.data, err
		}
		return nil, err
	}
	e.data = data
	e.hasData = true
	e.err = nil
	e.stale = false
	e.fetchedAt = time.Now()
	return data, nil
}

// Invalidate marks keys stale, announces them on the bus, and refetches in
// the background for every mounted handle of each key.
func (c *Cache) Invalidate(keys ...string) {
	for _, key := range keys {
		c.mu.Lock()
		e, ok := c.entries[key]
		if ok {
			e.stale = true
		}
		var refetchers []*Handle
		if ok {
			for h := range e.handles {
				if h.mounted && !h.disabled {
					refetchers = append(refetchers, h)
				}
			}
		}
		c.mu.Unlock()

		c.bus.Publish(TopicInvalidated, key)

		for _, h := range refetchers {
			go func(h *Handle) {
				ctx, cancel := context.WithTimeout(context.Background(), c.refetchTimeout)
				defer cancel()
				if _, err := c.fetchKey(ctx, h.key, h.fetch); err != nil {
					zap.L().Warn("background refetch failed",
						zap.String("key", h.key), zap.Error(err))
				}
			}(h)
		}
	}
}

// FetchedAt returns when the key last fetched successfully.
func (c *Cache) FetchedAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}
