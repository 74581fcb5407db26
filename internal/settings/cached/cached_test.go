package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settings-lite/internal/settings"
	"settings-lite/internal/settings/memstore"
	"settings-lite/internal/settings/relstore"
	"settings-lite/internal/tree"
)

// countingBackend counts reads reaching the wrapped backend.
type countingBackend struct {
	settings.Backend
	reads   int
	readErr error
}

func (c *countingBackend) Read(ctx context.Context) (*tree.Tree, error) {
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.Backend.Read(ctx)
}

func newTestCache(t *testing.T) *TTLCache {
	t.Helper()
	c := NewTTLCache()
	t.Cleanup(c.Stop)
	return c
}

func TestCachedContract(t *testing.T) {
	settings.RunContractTests(t, func(t *testing.T) settings.Opener {
		inner := memstore.New(nil)
		cache := newTestCache(t)
		return func() settings.Backend { return New(inner, cache) }
	})
}

func TestCachedContract_Relational(t *testing.T) {
	settings.RunContractTests(t, func(t *testing.T) settings.Opener {
		d := relstore.NewMemDriver()
		cache := newTestCache(t)
		return func() settings.Backend {
			inner, err := relstore.New(d)
			require.NoError(t, err)
			return New(inner, cache)
		}
	})
}

func TestRead_ServedFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(tree.MustFromMap(map[string]any{"foo": "bar"}))}
	b := New(inner, newTestCache(t))

	for i := 0; i < 3; i++ {
		got, err := b.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"foo": "bar"}, got.Map())
	}
	assert.Equal(t, 1, inner.reads)
}

func TestRead_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := New(memstore.New(tree.MustFromMap(map[string]any{"foo": "bar"})), newTestCache(t))

	first, err := b.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, tree.Set(first, "foo", tree.String("mutated")))

	second, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bar", tree.Get(second, "foo", tree.Null()).String())
}

func TestWrite_ForgetsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(nil)}
	cache := newTestCache(t)
	b := New(inner, cache)

	_, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, b.Write(ctx, tree.MustFromMap(map[string]any{"foo": "new"})))
	assert.Equal(t, 0, cache.Len())

	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", tree.Get(got, "foo", tree.Null()).String())
	assert.Equal(t, 2, inner.reads)
}

func TestWrite_WithoutForgetServesStale(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(tree.MustFromMap(map[string]any{"foo": "old"}))}
	b := New(inner, newTestCache(t), WithForgetOnWrite(false))

	_, err := b.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Write(ctx, tree.MustFromMap(map[string]any{"foo": "new"})))

	got, err := b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", tree.Get(got, "foo", tree.Null()).String())
	assert.Equal(t, 1, inner.reads)
}

func TestRead_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(nil), readErr: errors.New("unreachable")}
	cache := newTestCache(t)
	b := New(inner, cache)

	_, err := b.Read(ctx)
	assert.ErrorIs(t, err, settings.ErrRead)
	assert.Equal(t, 0, cache.Len())

	inner.readErr = nil
	_, err = b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(nil)}
	b := New(inner, newTestCache(t), WithTTL(20*time.Millisecond))

	_, err := b.Read(ctx)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)
}

func TestZeroTTLBypassesCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingBackend{Backend: memstore.New(nil)}
	cache := newTestCache(t)
	b := New(inner, cache, WithTTL(0))

	for i := 0; i < 2; i++ {
		_, err := b.Read(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.reads)
	assert.Equal(t, 0, cache.Len())
}

func TestWithKey_Isolates(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	a := New(memstore.New(tree.MustFromMap(map[string]any{"who": "a"})), cache, WithKey("a"))
	b := New(memstore.New(tree.MustFromMap(map[string]any{"who": "b"})), cache, WithKey("b"))

	got, err := a.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", tree.Get(got, "who", tree.Null()).String())
	got, err = b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", tree.Get(got, "who", tree.Null()).String())
}

func TestPruneForwarded(t *testing.T) {
	rel, err := relstore.New(relstore.NewMemDriver())
	require.NoError(t, err)
	assert.True(t, New(rel, newTestCache(t)).PruneEmptyAncestors())
	assert.False(t, New(memstore.New(nil), newTestCache(t)).PruneEmptyAncestors())
}
