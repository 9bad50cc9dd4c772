package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"statuspage/app/internal/cache"
)

// CachePrefix namespaces log entries in the shared cache.
const CachePrefix = "log:"

// notFoundMarker is cached in place of text when the store had no log.
const notFoundMarker = "\x00not-found"

// defaultFlightTimeout bounds a shared upstream fetch when Timeout is unset.
const defaultFlightTimeout = 30 * time.Second

// Cached serves recent fetches from a cache and collapses concurrent
// fetches of the same key into one upstream request. Transient errors are
// never cached.
type Cached struct {
	src   Source
	store cache.Store
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger

	// OnHit is called for every cache hit.
	OnHit func(key string)

	// Timeout bounds the shared upstream fetch. A flight outlives the
	// caller that started it, so it cannot rely on that caller's context.
	Timeout time.Duration
}

// NewCached wraps src. ttl <= 0 uses the store's default.
func NewCached(src Source, store cache.Store, ttl time.Duration, log zerolog.Logger) *Cached {
	return &Cached{src: src, store: store, ttl: ttl, log: log}
}

func (c *Cached) Name() string { return c.src.Name() }

func (c *Cached) Fetch(ctx context.Context, key string) (string, error) {
	ck := CachePrefix + key
	if v, ok, err := c.store.Get(ctx, ck); err != nil {
		c.log.Warn().Err(err).Str("service", key).Msg("cache read failed")
	} else if ok {
		if c.OnHit != nil {
			c.OnHit(key)
		}
		if v == notFoundMarker {
			return "", ErrNotFound
		}
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		// A flight that just finished may have filled the cache.
		if v, ok, _ := c.store.Get(fctx, ck); ok {
			if v == notFoundMarker {
				return "", ErrNotFound
			}
			return v, nil
		}
		text, err := c.src.Fetch(fctx, key)
		switch {
		case err == nil:
			c.put(fctx, ck, text)
		case errors.Is(err, ErrNotFound):
			c.put(fctx, ck, notFoundMarker)
		}
		return text, err
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cached) flightTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultFlightTimeout
}

func (c *Cached) put(ctx context.Context, ck, v string) {
	if err := c.store.Set(ctx, ck, v, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("cache_key", ck).Msg("cache write failed")
	}
}

// Purge drops every cached log.
func (c *Cached) Purge(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, CachePrefix)
}
