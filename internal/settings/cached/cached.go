// Package cached wraps a settings backend so reads are served from a cache
// for a short TTL and writes invalidate the cached tree.
package cached

import (
	"context"
	"time"

	"settings-lite/internal/settings"
	"settings-lite/internal/tree"
)

// Defaults for the cache entry holding the whole tree.
const (
	DefaultKey = "setting:cache"
	DefaultTTL = 15 * time.Second
)

// Cache is the remember/forget contract the decorator needs.
type Cache interface {
	// Remember returns the tree cached under key, calling compute and
	// caching its result for ttl on a miss. Errors from compute are
	// returned and not cached.
	Remember(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (*tree.Tree, error)) (*tree.Tree, error)

	// Forget drops key.
	Forget(ctx context.Context, key string) error
}

// Backend is a settings.Backend whose reads go through a Cache.
type Backend struct {
	inner         settings.Backend
	cache         Cache
	key           string
	ttl           time.Duration
	forgetOnWrite bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithKey sets the cache key.
func WithKey(key string) Option {
	return func(b *Backend) { b.key = key }
}

// WithTTL sets how long a read stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.ttl = ttl }
}

// WithForgetOnWrite controls whether Write drops the cached tree. It is on
// by default; turning it off lets readers see stale data until the TTL runs
// out.
func WithForgetOnWrite(forget bool) Option {
	return func(b *Backend) { b.forgetOnWrite = forget }
}

// New wraps inner with cache.
func New(inner settings.Backend, cache Cache, opts ...Option) *Backend {
	b := &Backend{
		inner:         inner,
		cache:         cache,
		key:           DefaultKey,
		ttl:           DefaultTTL,
		forgetOnWrite: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Read returns a copy of the cached tree, reading inner on a miss.
func (b *Backend) Read(ctx context.Context) (*tree.Tree, error) {
	t, err := b.cache.Remember(ctx, b.key, b.ttl, b.inner.Read)
	if err != nil {
		return nil, settings.ReadError(err)
	}
	return t.Clone(), nil
}

// Write drops the cached tree (unless disabled) and writes through to inner.
func (b *Backend) Write(ctx context.Context, data *tree.Tree) error {
	if b.forgetOnWrite {
		if err := b.cache.Forget(ctx, b.key); err != nil {
			return settings.WriteError(err)
		}
	}
	return b.inner.Write(ctx, data)
}

// PruneEmptyAncestors forwards the wrapped backend's pruning behavior.
func (b *Backend) PruneEmptyAncestors() bool {
	p, ok := b.inner.(settings.Pruner)
	return ok && p.PruneEmptyAncestors()
}
