package cached

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"settings-lite/internal/tree"
)

// TTLCache implements Cache on an in-process ttlcache.
type TTLCache struct {
	cache *ttlcache.Cache[string, *tree.Tree]
}

// NewTTLCache creates a cache and starts its expiry loop. Call Stop when
// done with it.
func NewTTLCache() *TTLCache {
	cache := ttlcache.New[string, *tree.Tree](
		ttlcache.WithDisableTouchOnHit[string, *tree.Tree](),
	)
	go cache.Start()
	return &TTLCache{cache: cache}
}

// Remember loads key through compute on a miss. A ttl of zero or less
// bypasses the cache.
func (c *TTLCache) Remember(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (*tree.Tree, error)) (*tree.Tree, error) {
	if ttl <= 0 {
		return compute(ctx)
	}

	var loadErr error
	loader := ttlcache.LoaderFunc[string, *tree.Tree](
		func(cache *ttlcache.Cache[string, *tree.Tree], k string) *ttlcache.Item[string, *tree.Tree] {
			t, err := compute(ctx)
			if err != nil {
				loadErr = err
				return nil
			}
			return cache.Set(k, t, ttl)
		},
	)

	item := c.cache.Get(key, ttlcache.WithLoader[string, *tree.Tree](loader))
	if loadErr != nil {
		return nil, loadErr
	}
	if item == nil {
		return tree.New(), nil
	}
	return item.Value(), nil
}

// Forget drops key.
func (c *TTLCache) Forget(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Len returns the number of live entries.
func (c *TTLCache) Len() int {
	return c.cache.Len()
}

// Stop halts the expiry loop.
func (c *TTLCache) Stop() {
	c.cache.Stop()
}
