// Package pagecache caches published pages by slug.
//
// A slug is fetched from the network at most once per cache lifetime unless
// the caller forces a refetch or an editor invalidates the entry. A failed
// refetch keeps serving the previous value (stale-but-available) when the
// failure is transient.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foomo/contentsite/api"
	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/sanitize"
	"github.com/foomo/contentsite/service/vo"
	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"
	"go.uber.org/zap"
)

const DefaultSize = 256

var ErrInvalidSlug = errors.New("invalid slug")

type Fetcher interface {
	FetchPublishedPage(ctx context.Context, slug string) (*vo.PublishedPage, error)
}

type Options struct {
	Force bool
}

type Result struct {
	Slug   string
	Page   *vo.PublishedPage
	Cached bool // served without a network call
	Stale  bool // refetch failed, previous value served
}

type EventKind string

const (
	EventFetched     EventKind = "page_fetched"
	EventStale       EventKind = "page_stale"
	EventInvalidated EventKind = "page_invalidated"
	EventCleared     EventKind = "page_cache_cleared"
)

type Event struct {
	Kind EventKind `json:"kind"`
	Slug string    `json:"slug,omitempty"`
}

// Observer is notified after every cache mutation.
type Observer func(Event)

type Cache struct {
	fetcher  Fetcher
	logger   *zap.Logger
	metrics  *metrics.Metrics
	observer Observer

	flight singleflight.Group

	mu      sync.Mutex
	entries *lru.Cache
}

type Option func(*Cache)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Cache) {
		c.observer = observer
	}
}

// WithSize bounds the number of cached slugs; the least recently used slug
// is dropped first. Zero means unbounded.
func WithSize(size int) Option {
	return func(c *Cache) {
		c.entries = lru.New(size)
	}
}

func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		logger:  zap.NewNop(),
		entries: lru.New(DefaultSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the published page for slug. Concurrent non-forced misses
// of one slug share a single network call.
func (c *Cache) Fetch(ctx context.Context, rawSlug string, opts Options) (*Result, error) {
	slug := sanitize.NormalizeSlug(rawSlug)
	if slug == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, rawSlug)
	}

	if opts.Force {
		return c.load(ctx, slug)
	}
	if page, ok := c.get(slug); ok {
		c.metrics.CacheEvent("hit")
		return &Result{Slug: slug, Page: page, Cached: true}, nil
	}
	c.metrics.CacheEvent("miss")

	for {
		done := make(chan flightResult, 1)
		go func() {
			v, err := c.flight.Do(slug, func() (interface{}, error) {
				if page, ok := c.get(slug); ok {
					return &Result{Slug: slug, Page: page, Cached: true}, nil
				}
				return c.load(ctx, slug)
			})
			done <- flightResult{v, err}
		}()

		var r flightResult
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r = <-done:
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// the call we joined was canceled by its own caller, not by us
		if r.err != nil && api.IsCanceled(r.err) {
			continue
		}
		if r.err != nil {
			return nil, r.err
		}
		res := *r.v.(*Result)
		return &res, nil
	}
}

type flightResult struct {
	v   interface{}
	err error
}

func (c *Cache) load(ctx context.Context, slug string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		c.metrics.CacheEvent("canceled")
		return nil, err
	}

	start := time.Now()
	page, err := c.fetcher.FetchPublishedPage(ctx, slug)
	c.metrics.ObserveFetch("page", time.Since(start).Seconds())

	// an aborted request must not touch the cache, even if a response arrived
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.metrics.CacheEvent("canceled")
		return nil, ctxErr
	}
	if err != nil {
		if api.IsCanceled(err) {
			c.metrics.CacheEvent("canceled")
			return nil, err
		}
		if api.IsTransient(err) {
			if stale, ok := c.get(slug); ok {
				c.logger.Warn("serving stale page", zap.String("slug", slug), zap.Error(err))
				c.metrics.CacheEvent("stale")
				c.notify(Event{Kind: EventStale, Slug: slug})
				return &Result{Slug: slug, Page: stale, Stale: true}, nil
			}
		}
		c.metrics.CacheEvent("error")
		return nil, fmt.Errorf("failed to fetch page %q: %w", slug, err)
	}
	if page == nil {
		return nil, fmt.Errorf("failed to fetch page %q: empty response", slug)
	}

	c.mu.Lock()
	c.entries.Add(slug, page)
	c.mu.Unlock()
	c.notify(Event{Kind: EventFetched, Slug: slug})
	return &Result{Slug: slug, Page: page}, nil
}

// Invalidate drops the entry for slug. It does not refetch.
func (c *Cache) Invalidate(rawSlug string) {
	slug := sanitize.NormalizeSlug(rawSlug)
	if slug == "" {
		return
	}
	c.mu.Lock()
	c.entries.Remove(slug)
	c.mu.Unlock()
	c.metrics.CacheEvent("invalidate")
	c.logger.Debug("page cache invalidated", zap.String("slug", slug))
	c.notify(Event{Kind: EventInvalidated, Slug: slug})
}

// InvalidateAll clears every cached slug.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries.Clear()
	c.mu.Unlock()
	c.metrics.CacheEvent("invalidate")
	c.logger.Debug("page cache cleared")
	c.notify(Event{Kind: EventCleared})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Peek returns the cached page without counting a hit.
func (c *Cache) Peek(rawSlug string) (*vo.PublishedPage, bool) {
	return c.get(sanitize.NormalizeSlug(rawSlug))
}

func (c *Cache) get(slug string) (*vo.PublishedPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(slug)
	if !ok {
		return nil, false
	}
	return v.(*vo.PublishedPage), true
}

func (c *Cache) notify(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}
