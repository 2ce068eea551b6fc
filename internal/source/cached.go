package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/seattle-ev-map/internal/cache/keys"
)

// Store is the key/value surface Cached needs; redisstore.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cached keeps a copy of the upstream payload in Redis. Store errors never
// fail a fetch; they only cost a direct upstream read.
type Cached struct {
	next   Fetcher
	store  Store
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Fetcher, store Store, kind string, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		next:   next,
		store:  store,
		key:    keys.Source(kind, next.Location()),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cached) Location() string { return c.next.Location() }

func (c *Cached) Key() string { return c.key }

func (c *Cached) Fetch(ctx context.Context) ([]byte, error) {
	b, ok, err := c.store.Get(ctx, c.key)
	switch {
	case err != nil:
		c.logger.Warn("source cache read failed; fetching upstream", "key", c.key, "err", err)
	case ok:
		c.logger.Debug("source cache hit", "key", c.key, "bytes", len(b))
		return b, nil
	}

	b, err = c.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, c.key, b, c.ttl); err != nil {
		c.logger.Warn("source cache write failed", "key", c.key, "err", err)
	}
	return b, nil
}

// Invalidate drops the cached copy so the next Fetch reads upstream.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.store.Del(ctx, c.key)
}
