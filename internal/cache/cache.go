package cache

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached response. Endpoint is the request path plus raw
// query; Identity is the caller fingerprint from Fingerprint.
type Key struct {
	Endpoint string
	Identity string
}

// String returns the flat form of the key used for singleflight grouping.
func (k Key) String() string {
	return k.Identity + "\x00" + k.Endpoint
}

// Payload is a captured backend response.
type Payload struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy so callers can mutate headers freely.
func (p Payload) Clone() Payload {
	body := make([]byte, len(p.Body))
	copy(body, p.Body)
	return Payload{
		Status: p.Status,
		Header: p.Header.Clone(),
		Body:   body,
	}
}

// Entry is a stored payload with its freshness metadata. Entries are never
// mutated after Put.
type Entry struct {
	Key      Key
	Payload  Payload
	StoredAt time.Time
	TTL      time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Cache is a process-wide, time-bounded store of successful read responses.
// Expired entries are discarded lazily on lookup; there is no background sweep.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	now     func() time.Time

	// group collapses concurrent misses for the same key into one fetch.
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the fresh entry for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	if entry.expired(now) {
		c.mu.Lock()
		// Only drop the entry we looked at; a concurrent Put may have replaced it.
		if current, ok := c.entries[key]; ok && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}

	out := *entry
	out.Payload = entry.Payload.Clone()
	return out, true
}

// Put stores payload under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Put(key Key, payload Payload, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	entry := &Entry{
		Key:      key,
		Payload:  payload.Clone(),
		StoredAt: c.now(),
		TTL:      ttl,
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// FetchFunc performs the backend call on a miss. It reports whether the
// returned payload may be stored.
type FetchFunc func(ctx context.Context) (payload Payload, cacheable bool, err error)

// Load returns the cached payload for key or calls fetch exactly once for
// all concurrent callers missing on the same key. A cacheable result is stored
// for ttl. The returned bool reports a cache hit.
//
// The shared fetch runs on a context detached from the caller that started
// it, so one caller giving up does not fail the others. Each caller stops
// waiting when its own ctx is done.
func (c *Cache) Load(ctx context.Context, key Key, ttl time.Duration, fetch FetchFunc) (Payload, bool, error) {
	if entry, ok := c.Get(key); ok {
		return entry.Payload, true, nil
	}

	type result struct {
		payload Payload
		hit     bool
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		// Another flight may have landed between our miss and acquiring the key.
		if entry, ok := c.Get(key); ok {
			return result{payload: entry.Payload, hit: true}, nil
		}

		payload, cacheable, err := fetch(fetchCtx)
		if err != nil {
			return result{payload: payload}, err
		}
		if cacheable {
			c.Put(key, payload, ttl)
		}
		return result{payload: payload}, nil
	})

	select {
	case <-ctx.Done():
		return Payload{}, false, ctx.Err()
	case r := <-ch:
		res, _ := r.Val.(result)
		return res.payload.Clone(), res.hit, r.Err
	}
}

// Invalidate removes every entry under resource prefix, for all identities,
// and returns how many were removed. An entry is under prefix when its
// endpoint equals prefix or continues it with "/" or "?". An empty prefix
// removes all.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if underPrefix(key.Endpoint, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func underPrefix(endpoint, prefix string) bool {
	if prefix == "" || endpoint == prefix {
		return true
	}
	if !strings.HasPrefix(endpoint, prefix) {
		return false
	}
	next := endpoint[len(prefix)]
	return next == '/' || next == '?' || strings.HasSuffix(prefix, "/")
}

// Purge removes all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[Key]*Entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// discarded.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
