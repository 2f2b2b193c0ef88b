// Package prefetch caches prefetched modal pages keyed by URL. An entry
// pairs the raw page data with its already-resolved component so a cache
// hit never needs a further asynchronous resolution step.
package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modalnav/internal/components"
	"modalnav/pkg/types"
)

// DefaultTTL is how long an entry stays servable. Older entries are
// treated as absent and evicted lazily on the next lookup.
const DefaultTTL = 30 * time.Second

// FetchFunc retrieves the page for a URL, typically through the host
// router's transport with the modal request header set.
type FetchFunc func(ctx context.Context, url string) (types.Page, error)

// Entry is one cached prefetch: page data plus resolved component,
// committed as one atomic unit.
type Entry struct {
	Data      types.ModalData
	Component components.Component
	At        time.Time
}

// Cache is the URL-keyed prefetch store with TTL expiry and in-flight
// de-duplication.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	entries  map[string]Entry
	inflight map[string]struct{}
	// Component resolutions cross-cached by logical name, so identical
	// components across different URLs resolve once.
	resolved map[string]components.Component
	resolver components.Resolver
	fetch    FetchFunc
	log      zerolog.Logger
}

// Option tweaks cache construction.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source; tests use it to cross the TTL
// boundary deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(resolver components.Resolver, fetch FetchFunc, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		ttl:      DefaultTTL,
		now:      time.Now,
		entries:  make(map[string]Entry),
		inflight: make(map[string]struct{}),
		resolved: make(map[string]components.Component),
		resolver: resolver,
		fetch:    fetch,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live entry for url. Expired entries are evicted here and
// reported as absent.
func (c *Cache) Get(url string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(e.At) >= c.ttl {
		delete(c.entries, url)
		return Entry{}, false
	}
	return e, true
}

// Prefetch fetches and caches url. It is idempotent: a live cache entry or
// an identical prefetch already in flight makes it a no-op.
func (c *Cache) Prefetch(ctx context.Context, url string) error {
	c.mu.Lock()
	if e, ok := c.entries[url]; ok && c.now().Sub(e.At) < c.ttl {
		c.mu.Unlock()
		return nil
	}
	if _, busy := c.inflight[url]; busy {
		c.mu.Unlock()
		return nil
	}
	c.inflight[url] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, url)
		c.mu.Unlock()
	}()

	page, err := c.fetch(ctx, url)
	if err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("prefetch fetch failed")
		return err
	}
	if !c.ingest(ctx, page) {
		return ErrNotModalPage(url)
	}
	return nil
}

// Ingest is the passive path fed by the host router's prefetch-completion
// signal. It extracts the modal payload, resolves the named component and
// only then commits the entry. It reports false when the page carries no
// usable modal payload or resolution fails.
func (c *Cache) Ingest(ctx context.Context, page types.Page) bool {
	return c.ingest(ctx, page)
}

func (c *Cache) ingest(ctx context.Context, page types.Page) bool {
	data, ok := page.Modal()
	if !ok {
		return false
	}
	comp, err := c.resolveByName(ctx, data.Component)
	if err != nil {
		c.log.Error().Err(err).Str("component", data.Component).Str("url", data.URL).
			Msg("prefetch component resolution failed")
		return false
	}
	c.mu.Lock()
	c.entries[data.URL] = Entry{Data: data, Component: comp, At: c.now()}
	c.mu.Unlock()
	c.log.Debug().Str("url", data.URL).Str("component", data.Component).Msg("prefetch cached")
	return true
}

func (c *Cache) resolveByName(ctx context.Context, name string) (components.Component, error) {
	c.mu.Lock()
	comp, ok := c.resolved[name]
	c.mu.Unlock()
	if ok {
		return comp, nil
	}
	comp, err := c.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.resolved[name] = comp
	c.mu.Unlock()
	return comp, nil
}

// Len counts live entries, evicting expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for url, e := range c.entries {
		if now.Sub(e.At) >= c.ttl {
			delete(c.entries, url)
		}
	}
	return len(c.entries)
}
