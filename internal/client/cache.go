package client

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// Query resources.
const (
	ResourceBroadcasts = "broadcasts"
	ResourceJourneys   = "journeys"
)

// QueryKey identifies a cached query. A key used as a filter matches every
// key with the same Resource whose WorkspaceID and IDs equal the filter's
// non-empty fields.
type QueryKey struct {
	Resource    string
	WorkspaceID string
	IDs         []string
}

func (k QueryKey) String() string {
	return k.Resource + "|" + k.WorkspaceID + "|" + strings.Join(k.IDs, ",")
}

func (k QueryKey) matches(filter QueryKey) bool {
	if k.Resource != filter.Resource {
		return false
	}
	if filter.WorkspaceID != "" && k.WorkspaceID != filter.WorkspaceID {
		return false
	}
	return filter.IDs == nil || slices.Equal(k.IDs, filter.IDs)
}

// Fetcher loads the data for one query.
type Fetcher[T any] func(ctx context.Context) (T, error)

type cacheEntry[T any] struct {
	key      QueryKey
	data     T
	hasData  bool
	stale    bool
	fetcher  Fetcher[T]
	inflight map[uint64]context.CancelFunc
}

// QueryCache holds query results keyed by QueryKey. It is safe for
// concurrent use.
type QueryCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[T]
	nextID  uint64
}

// NewQueryCache returns an empty cache.
func NewQueryCache[T any]() *QueryCache[T] {
	return &QueryCache[T]{entries: make(map[string]*cacheEntry[T])}
}

func (c *QueryCache[T]) entry(key QueryKey) *cacheEntry[T] {
	e, ok := c.entries[key.String()]
	if !ok {
		e = &cacheEntry[T]{key: key, inflight: make(map[uint64]context.CancelFunc)}
		c.entries[key.String()] = e
	}
	return e
}

// Fetch runs fn for key and stores its result. If the fetch is cancelled by
// CancelQueries while running, the result is discarded and context.Canceled
// is returned.
func (c *QueryCache[T]) Fetch(ctx context.Context, key QueryKey, fn Fetcher[T]) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	e := c.entry(key)
	e.fetcher = fn
	c.nextID++
	id := c.nextID
	e.inflight[id] = cancel
	c.mu.Unlock()

	data, err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, live := e.inflight[id]; !live {
		var zero T
		return zero, context.Canceled
	}
	delete(e.inflight, id)
	if err != nil {
		var zero T
		return zero, err
	}
	e.data, e.hasData, e.stale = data, true, false
	return data, nil
}

// CancelQueries cancels in-flight fetches matching filter. Their results
// are discarded.
func (c *QueryCache[T]) CancelQueries(filter QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if !e.key.matches(filter) {
			continue
		}
		for id, cancel := range e.inflight {
			cancel()
			delete(e.inflight, id)
		}
	}
}

// GetQueryData returns the cached data for key.
func (c *QueryCache[T]) GetQueryData(key QueryKey) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		var zero T
		return zero, false
	}
	return e.data, true
}

// SetQueryData replaces the cached data for key.
func (c *QueryCache[T]) SetQueryData(key QueryKey, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.data, e.hasData = data, true
}

// IsStale reports whether key has been invalidated and not yet refetched.
func (c *QueryCache[T]) IsStale(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return ok && e.stale
}

// InvalidateQueries marks every query of resource stale and refetches the
// ones that have a known fetcher.
func (c *QueryCache[T]) InvalidateQueries(ctx context.Context, resource string) error {
	type refetch struct {
		key QueryKey
		fn  Fetcher[T]
	}
	var todo []refetch

	c.mu.Lock()
	for _, e := range c.entries {
		if e.key.Resource != resource {
			continue
		}
		e.stale = true
		if e.fetcher != nil {
			todo = append(todo, refetch{e.key, e.fetcher})
		}
	}
	c.mu.Unlock()

	var errs []error
	for _, r := range todo {
		if _, err := c.Fetch(ctx, r.key, r.fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
