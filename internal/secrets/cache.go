package secrets

import (
	"context"
	"sync"
	"time"
)

// entry is one cached fetch result together with the value returned by the
// fetch before it. Keeping the previous value explicit makes the changed
// comparison a pure function of the entry.
type entry[T comparable] struct {
	value     T
	fetchedAt time.Time
	prev      *T
}

func (e *entry[T]) changed() bool {
	return e.prev == nil || *e.prev != e.value
}

// ttlCache caches a fetched value for a fixed time to live. Within the TTL
// it returns the cached value with changed=false; after expiry it performs a
// fresh fetch and reports whether the value differs from the previous fetch.
// A failed fetch leaves the cache untouched, so the error is fatal only to
// the call that hit it.
type ttlCache[T comparable] struct {
	ttl   time.Duration
	fetch func(ctx context.Context) (T, error)
	now   func() time.Time

	mu  sync.Mutex
	cur *entry[T]
}

func newTTLCache[T comparable](ttl time.Duration, fetch func(ctx context.Context) (T, error)) *ttlCache[T] {
	return &ttlCache[T]{ttl: ttl, fetch: fetch, now: time.Now}
}

func (c *ttlCache[T]) get(ctx context.Context) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cur != nil && now.Sub(c.cur.fetchedAt) < c.ttl {
		return c.cur.value, false, nil
	}

	val, err := c.fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	next := &entry[T]{value: val, fetchedAt: now}
	if c.cur != nil {
		prev := c.cur.value
		next.prev = &prev
	}
	c.cur = next

	return next.value, next.changed(), nil
}
